package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"weavoor/internal/config"
)

// maxEmbedChars caps the text sent to the embedding model.
const maxEmbedChars = 8000

// Func embeds one document. It has the shape of chromem.EmbeddingFunc.
type Func func(ctx context.Context, text string) ([]float32, error)

// NewEmbedder creates the langchaingo embedder for cfg.Provider.
func NewEmbedder(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIEmbedder(cfg)
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewOpenAIEmbedder works with any OpenAI-compatible embeddings endpoint.
func NewOpenAIEmbedder(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai embedding client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

func NewOllamaEmbedder(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// NewFunc returns a Func backed by the configured provider.
func NewFunc(cfg config.LLMConfig) (Func, error) {
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		return GenerateEmbedding(ctx, embedder, text)
	}, nil
}

// GenerateEmbedding embeds the leading chunk of content.
func GenerateEmbedding(ctx context.Context, embedder embeddings.Embedder, content string) ([]float32, error) {
	chunks := chunkContent(content, maxEmbedChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("nothing to embed")
	}

	vec, err := embedder.EmbedQuery(ctx, chunks[0])
	if err != nil {
		return nil, fmt.Errorf("failed to embed document: %w", err)
	}
	return vec, nil
}

// chunkContent splits content on spaces into pieces of at most maxChars bytes.
func chunkContent(content string, maxChars int) []string {
	var chunks []string
	var chunk strings.Builder
	for _, word := range strings.Fields(content) {
		if chunk.Len() > 0 && chunk.Len()+len(word)+1 > maxChars {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
		}
		if chunk.Len() > 0 {
			chunk.WriteByte(' ')
		}
		chunk.WriteString(word)
	}
	if chunk.Len() > 0 {
		chunks = append(chunks, chunk.String())
	}
	return chunks
}
