package summarizer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"weavoor/internal/helper"
	"weavoor/internal/llmservice"
	"weavoor/internal/models"
)

// GenerationError reports a failed call to the language model.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("summary generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Summarizer asks a language model for a short bullet summary of a transcript.
type Summarizer struct {
	gen    llmservice.Generator
	budget int
}

// New returns a Summarizer that sends at most budget characters of each
// transcript. A budget of zero or less sends the whole transcript.
func New(gen llmservice.Generator, budget int) *Summarizer {
	return &Summarizer{gen: gen, budget: budget}
}

// Summarize returns the model output verbatim.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	text := Truncate(transcript, s.budget)
	prompt := fmt.Sprintf(models.SummaryPromptTemplate, text)

	log.Debug().Int("transcript_chars", len([]rune(transcript))).Int("sent_chars", len([]rune(text))).Msg("Generating summary")

	summary, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	return summary, nil
}

// Truncate keeps the first budget characters of text.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	return helper.TruncateRunes(text, budget)
}
