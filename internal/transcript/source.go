package transcript

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"weavoor/internal/config"
	"weavoor/internal/executor"
)

// Source turns a media URL into plain transcript text.
type Source interface {
	FetchTranscript(ctx context.Context, sourceURL string) (string, error)
}

type named interface {
	Name() string
}

func nameOf(s Source) string {
	if n, ok := s.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// Chain tries its sources in order. It advances only when a source reports
// ErrTranscriptUnavailable; any other error ends the chain.
type Chain struct {
	sources []Source
}

func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) FetchTranscript(ctx context.Context, sourceURL string) (string, error) {
	if len(c.sources) == 0 {
		return "", errors.New("no transcript sources configured")
	}

	var lastErr error
	for i, src := range c.sources {
		text, err := src.FetchTranscript(ctx, sourceURL)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, ErrTranscriptUnavailable) {
			return "", err
		}
		lastErr = err
		if i < len(c.sources)-1 {
			log.Info().
				Str("backend", nameOf(src)).
				Str("next", nameOf(c.sources[i+1])).
				Err(err).
				Msg("transcript unavailable, trying next backend")
		}
	}
	return "", lastErr
}

// New builds the configured backend, wrapped in a Chain when fallbacks are set.
func New(cfg config.TranscriptConfig, exec executor.Executor) (Source, error) {
	backends := cfg.Backends()
	sources := make([]Source, 0, len(backends))
	for _, backend := range backends {
		src, err := newBackend(backend, cfg, exec)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if len(sources) == 1 {
		return sources[0], nil
	}
	return NewChain(sources...), nil
}

func newBackend(backend string, cfg config.TranscriptConfig, exec executor.Executor) (Source, error) {
	switch backend {
	case config.BackendCaptions:
		return NewCaptionSource(cfg), nil
	case config.BackendCaptionsManual:
		return NewManualCaptionSource(cfg), nil
	case config.BackendCaptionsInnertube:
		return NewInnertubeCaptionSource(cfg), nil
	case config.BackendCloud:
		return NewCloudSource(cfg.Cloud, cfg.Language), nil
	case config.BackendDownload:
		transcriber, err := NewAudioTranscriber(cfg.Download, cfg.Language, exec)
		if err != nil {
			return nil, err
		}
		return NewDownloadSource(cfg.Download, exec, transcriber), nil
	default:
		return nil, fmt.Errorf("unknown transcript backend %q", backend)
	}
}

var (
	_ Source = (*CaptionSource)(nil)
	_ Source = (*CloudSource)(nil)
	_ Source = (*DownloadSource)(nil)
	_ Source = (*Chain)(nil)
)
