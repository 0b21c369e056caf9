package weave

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weavoor/internal/chromemdb"
	"weavoor/internal/config"
	"weavoor/internal/models"
	"weavoor/internal/summarizer"
	"weavoor/internal/transcript"
)

const promptPrefix = "Summarize in 5 short bullets:\n\n"

var vectors = map[string][]float32{
	"summary:go talk":   {1, 0},
	"summary:prior":     {0.95, 0.31224990},
	"summary:related":   {0.8, 0.6},
	"summary:cooking":   {0, 1},
	"summary:new again": {1, 0},
}

func embed(_ context.Context, text string) ([]float32, error) {
	v, ok := vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func echoGenerator() generatorFunc {
	return func(_ context.Context, prompt string) (string, error) {
		return "summary:" + strings.TrimPrefix(prompt, promptPrefix), nil
	}
}

type sourceFunc func(ctx context.Context, sourceURL string) (string, error)

func (f sourceFunc) FetchTranscript(ctx context.Context, sourceURL string) (string, error) {
	return f(ctx, sourceURL)
}

func staticSource(text string) sourceFunc {
	return func(context.Context, string) (string, error) { return text, nil }
}

func failingSource(kind transcript.Kind) sourceFunc {
	return func(_ context.Context, sourceURL string) (string, error) {
		return "", &transcript.Error{Kind: kind, MediaID: "abc", Err: errors.New("stub")}
	}
}

type fixture struct {
	weaver *Weaver
	index  *chromemdb.VectorDBManager
}

func newFixture(t *testing.T, src transcript.Source, gen generatorFunc) fixture {
	t.Helper()
	idx, err := chromemdb.NewVectorDBManager("", models.DefaultCollectionName, true, false, embed)
	require.NoError(t, err)

	cfg := config.WeaveConfig{
		SimilarityThreshold: models.DefaultSimilarityThreshold,
		NeighborLimit:       models.DefaultNeighborLimit,
		SummaryCharBudget:   models.DefaultSummaryCharBudget,
	}
	w := NewWeaver(Deps{
		Source:     src,
		Summarizer: summarizer.New(gen, cfg.SummaryCharBudget),
		Index:      idx,
	}, cfg, false)
	return fixture{weaver: w, index: idx}
}

func count(t *testing.T, f fixture) int {
	t.Helper()
	n, err := f.index.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestWeaveFirstItem(t *testing.T) {
	f := newFixture(t, staticSource("go talk"), echoGenerator())

	res, err := f.weaver.Weave(context.Background(), "https://www.youtube.com/watch?v=abc&t=5")
	require.NoError(t, err)

	assert.Equal(t, "abc", res.Item.ID)
	assert.Equal(t, "summary:go talk", res.Item.SummaryText)
	assert.Empty(t, res.Neighbors)
	assert.Len(t, res.Graph.Nodes, 1)
	assert.Empty(t, res.Graph.Edges)
	assert.Equal(t, 0, res.Connections)
	assert.Equal(t, "Weave complete! Found 0 connections", res.Message())
	assert.Equal(t, "abc.md", res.NoteFileName)
	assert.Equal(t, "# https://www.youtube.com/watch?v=abc&t=5\n\nsummary:go talk\n\n![[graph.html]]", res.Note)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, count(t, f))
}

func TestWeaveFallbackAndConnection(t *testing.T) {
	manual := failingSource(transcript.NoCaptionsInLanguage)
	generated := staticSource("go talk")
	f := newFixture(t, transcript.NewChain(manual, generated), echoGenerator())

	ctx := context.Background()
	require.NoError(t, f.index.Upsert(ctx, "prior", "summary:prior", map[string]string{models.MetadataURLKey: "https://youtu.be/prior"}))

	res, err := f.weaver.Weave(ctx, "https://youtu.be/abc")
	require.NoError(t, err)

	require.Len(t, res.Neighbors, 1)
	assert.Equal(t, "prior", res.Neighbors[0].ID)
	assert.InDelta(t, 0.1, res.Neighbors[0].Distance, 1e-4)
	assert.Len(t, res.Graph.Nodes, 2)
	assert.Len(t, res.Graph.Edges, 1)
	assert.Equal(t, 1, res.Connections)
	assert.Equal(t, "Weave complete! Found 1 connections", res.Message())
}

func TestWeaveDistantNeighborIsNotConnected(t *testing.T) {
	f := newFixture(t, staticSource("go talk"), echoGenerator())
	ctx := context.Background()
	require.NoError(t, f.index.Upsert(ctx, "cook", "summary:cooking", nil))

	res, err := f.weaver.Weave(ctx, "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Len(t, res.Neighbors, 1)
	assert.Equal(t, 0, res.Connections)
}

func TestWeaveSimilarityPointEightIsNotConnected(t *testing.T) {
	f := newFixture(t, staticSource("go talk"), echoGenerator())
	ctx := context.Background()
	require.NoError(t, f.index.Upsert(ctx, "related", "summary:related", nil))

	res, err := f.weaver.Weave(ctx, "https://youtu.be/abc")
	require.NoError(t, err)

	require.Len(t, res.Neighbors, 1)
	assert.InDelta(t, 0.4, res.Neighbors[0].Distance, 1e-4)
	assert.Equal(t, 0, res.Connections)
	assert.Len(t, res.Graph.Nodes, 1)
}

func TestWeaveCaptionsDisabledLeavesIndexUntouched(t *testing.T) {
	f := newFixture(t, failingSource(transcript.CaptionsDisabled), echoGenerator())

	res, err := f.weaver.Weave(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, transcript.ErrTranscriptUnavailable)
	assert.Equal(t, "Transcripts are disabled for this video.", Describe(err).Text)
	assert.Equal(t, 0, count(t, f))
}

// brokenExecutor fails every command, noting the -o work dir and whether it
// existed at call time.
type brokenExecutor struct {
	workDir string
	existed bool
}

func (b *brokenExecutor) Execute(_ context.Context, name string, args ...string) (string, error) {
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			b.workDir = filepath.Dir(args[i+1])
			_, err := os.Stat(b.workDir)
			b.existed = err == nil
		}
	}
	return "", fmt.Errorf("command '%s' failed: exit status 1", name)
}

func (b *brokenExecutor) ExecuteInDir(ctx context.Context, _ string, name string, args ...string) (string, error) {
	return b.Execute(ctx, name, args...)
}

func TestWeaveDownloadFailureRemovesTempDir(t *testing.T) {
	tmp := t.TempDir()
	runner := &brokenExecutor{}
	src := transcript.NewDownloadSource(config.DownloadConfig{
		YtDlpPath:  "yt-dlp",
		FFmpegPath: "ffmpeg",
		TempDir:    tmp,
	}, runner, nil)
	f := newFixture(t, src, echoGenerator())

	_, err := f.weaver.Weave(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)
	assert.Equal(t, KindDownload, Describe(err).Kind)

	require.NotEmpty(t, runner.workDir)
	assert.True(t, runner.existed, "work dir should exist while yt-dlp runs")
	assert.Equal(t, tmp, filepath.Dir(runner.workDir))
	_, statErr := os.Stat(runner.workDir)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, count(t, f))
}

func TestWeaveGenerationFailureLeavesIndexUntouched(t *testing.T) {
	gen := generatorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("rate limited")
	})
	f := newFixture(t, staticSource("go talk"), gen)

	_, err := f.weaver.Weave(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)

	msg := Describe(err)
	assert.Equal(t, KindGeneration, msg.Kind)
	assert.Contains(t, msg.Text, "rate limited")
	assert.Equal(t, 0, count(t, f))
}

func TestWeaveSameURLTwiceOverwrites(t *testing.T) {
	f := newFixture(t, staticSource("go talk"), echoGenerator())
	ctx := context.Background()

	_, err := f.weaver.Weave(ctx, "https://youtu.be/abc")
	require.NoError(t, err)
	res, err := f.weaver.Weave(ctx, "https://youtu.be/abc")
	require.NoError(t, err)

	assert.Equal(t, 1, count(t, f))
	assert.Empty(t, res.Neighbors, "an item is never its own neighbor")
}

func TestWeaveEmptyURL(t *testing.T) {
	f := newFixture(t, staticSource("go talk"), echoGenerator())

	_, err := f.weaver.Weave(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyURL)
	assert.Equal(t, "Please paste a URL!", Describe(err).Text)
}

func TestLookup(t *testing.T) {
	f := newFixture(t, staticSource("go talk"), echoGenerator())
	ctx := context.Background()
	require.NoError(t, f.index.Upsert(ctx, "prior", "summary:prior", nil))

	_, err := f.weaver.Weave(ctx, "https://youtu.be/abc")
	require.NoError(t, err)

	res, err := f.weaver.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/abc", res.Item.SourceURL)
	assert.Equal(t, 1, res.Connections)

	_, err = f.weaver.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrEntryNotFound)
}

func TestSearch(t *testing.T) {
	f := newFixture(t, staticSource("go talk"), echoGenerator())
	ctx := context.Background()
	require.NoError(t, f.index.Upsert(ctx, "prior", "summary:prior", nil))
	require.NoError(t, f.index.Upsert(ctx, "cook", "summary:cooking", nil))

	got, err := f.weaver.Search(ctx, "summary:go talk", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "prior", got[0].ID)

	_, err = f.weaver.Search(ctx, " ", 1)
	assert.Error(t, err)
}
