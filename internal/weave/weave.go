// Package weave runs one URL through transcript, summary, index and graph.
package weave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"weavoor/internal/config"
	"weavoor/internal/export"
	"weavoor/internal/graph"
	"weavoor/internal/helper"
	"weavoor/internal/index"
	"weavoor/internal/models"
	"weavoor/internal/summarizer"
	"weavoor/internal/transcript"
)

// ErrEmptyURL is returned when Weave is called without a URL.
var ErrEmptyURL = errors.New("empty url")

// Result is everything a successful weave produces.
type Result struct {
	RunID        string            `json:"run_id"`
	Item         models.MediaItem  `json:"item"`
	Neighbors    []models.Neighbor `json:"neighbors"`
	Graph        *graph.Graph      `json:"graph"`
	Connections  int               `json:"connections"`
	Note         string            `json:"note"`
	NoteFileName string            `json:"note_file_name"`
}

// Message is the line shown to the user after a successful weave.
func (r *Result) Message() string {
	return fmt.Sprintf("Weave complete! Found %d connections", r.Connections)
}

// Deps are the components a Weaver drives.
type Deps struct {
	Source     transcript.Source
	Summarizer *summarizer.Summarizer
	Index      index.Index
}

// Weaver runs weaves one at a time.
type Weaver struct {
	mu          sync.Mutex
	source      transcript.Source
	summarizer  *summarizer.Summarizer
	index       index.Index
	cfg         config.WeaveConfig
	includeSelf bool
}

func NewWeaver(deps Deps, cfg config.WeaveConfig, includeSelf bool) *Weaver {
	return &Weaver{
		source:      deps.Source,
		summarizer:  deps.Summarizer,
		index:       deps.Index,
		cfg:         cfg,
		includeSelf: includeSelf,
	}
}

// Weave fetches the transcript for sourceURL, summarizes it, stores the
// summary and links it to its nearest neighbours. The index is written only
// after the summary exists.
func (w *Weaver) Weave(ctx context.Context, sourceURL string) (*Result, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, ErrEmptyURL
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	mediaID, err := helper.MediaID(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", sourceURL, err)
	}

	runID := helper.RunID()
	logger := log.With().Str("run_id", runID).Str("media_id", mediaID).Logger()

	logger.Info().Str("url", sourceURL).Msg("Fetching transcript")
	text, err := w.source.FetchTranscript(ctx, sourceURL)
	if err != nil {
		logger.Error().Err(err).Msg("Transcript failed")
		return nil, err
	}

	logger.Info().Int("chars", len(text)).Msg("Summarizing")
	summary, err := w.summarizer.Summarize(ctx, text)
	if err != nil {
		logger.Error().Err(err).Msg("Summary failed")
		return nil, err
	}

	item := models.MediaItem{
		ID:             mediaID,
		SourceURL:      sourceURL,
		TranscriptText: text,
		SummaryText:    summary,
	}
	if err := w.index.Upsert(ctx, item.ID, item.SummaryText, item.Metadata()); err != nil {
		return nil, fmt.Errorf("failed to store summary: %w", err)
	}

	result, err := w.link(ctx, item)
	if err != nil {
		return nil, err
	}
	result.RunID = runID

	logger.Info().Int("neighbors", len(result.Neighbors)).Int("connections", result.Connections).Msg("Weave complete")
	return result, nil
}

// Lookup rebuilds the result for an id woven earlier, using the index as it
// is now.
func (w *Weaver) Lookup(ctx context.Context, mediaID string) (*Result, error) {
	entry, err := w.index.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	return w.link(ctx, models.MediaItem{
		ID:          entry.ID,
		SourceURL:   entry.Metadata[models.MetadataURLKey],
		SummaryText: entry.Document,
	})
}

// Search returns the k stored summaries closest to text.
func (w *Weaver) Search(ctx context.Context, text string, k int) ([]models.Neighbor, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty search text")
	}
	if k <= 0 {
		k = w.cfg.NeighborLimit
	}
	return w.index.QueryNearest(ctx, text, k)
}

func (w *Weaver) link(ctx context.Context, item models.MediaItem) (*Result, error) {
	neighbors, err := index.Neighbors(ctx, w.index, item.ID, item.SummaryText, w.cfg.NeighborLimit, w.includeSelf)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}

	g, connections := graph.Build(item.SummaryText, neighbors, w.cfg.SimilarityThreshold)

	return &Result{
		Item:         item,
		Neighbors:    neighbors,
		Graph:        g,
		Connections:  connections,
		Note:         export.Note(item.SourceURL, item.SummaryText, export.GraphFileName),
		NoteFileName: export.NoteFileName(item.ID),
	}, nil
}
