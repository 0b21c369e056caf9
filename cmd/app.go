package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"weavoor/internal/config"
	"weavoor/internal/embedding"
	"weavoor/internal/executor"
	"weavoor/internal/index"
	"weavoor/internal/llmservice"
	"weavoor/internal/summarizer"
	"weavoor/internal/transcript"
	"weavoor/internal/weave"
)

type app struct {
	index  index.Index
	weaver *weave.Weaver
}

func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing index")
	}
}

func openIndex(ctx context.Context, cfg *config.Config) (index.Index, error) {
	embed, err := embedding.NewFunc(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}
	idx, err := index.New(ctx, cfg.Index, embed)
	if err != nil {
		return nil, fmt.Errorf("opening %s index: %w", cfg.Index.Backend, err)
	}
	return idx, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	source, err := transcript.New(cfg.Transcript, executor.New())
	if err != nil {
		return nil, fmt.Errorf("initializing transcript source: %w", err)
	}

	gen, err := llmservice.NewGenerator(ctx, cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("initializing generator: %w", err)
	}

	idx, err := openIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Strs("transcript_backends", cfg.Transcript.Backends()).
		Str("generation", cfg.Generation.Provider).
		Str("embedding", cfg.Embedding.Provider).
		Str("index", cfg.Index.Backend).
		Msg("Initialized components")

	w := weave.NewWeaver(weave.Deps{
		Source:     source,
		Summarizer: summarizer.New(gen, cfg.Weave.SummaryCharBudget),
		Index:      idx,
	}, cfg.Weave, cfg.Index.IncludeSelf)

	return &app{index: idx, weaver: w}, nil
}
