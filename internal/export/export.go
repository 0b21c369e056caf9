// Package export turns a finished weave into an Obsidian note and the files
// that go with it.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"weavoor/internal/graph"
	"weavoor/internal/helper"
)

// GraphFileName is the file the note embeds.
const GraphFileName = "graph.html"

// Note returns the markdown note for a weave.
func Note(url, summary, graphFile string) string {
	return fmt.Sprintf("# %s\n\n%s\n\n![[%s]]", url, summary, graphFile)
}

// NoteFileName returns the file name of the note for a media id.
func NoteFileName(mediaID string) string {
	return mediaID + ".md"
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// NoteHTML renders a note to an HTML fragment.
func NoteHTML(note string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(note), &buf); err != nil {
		return "", fmt.Errorf("failed to render note: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Bundle is what WriteBundle puts on disk for one weave.
type Bundle struct {
	MediaID string
	Note    string
	Graph   *graph.Graph
}

// WriteBundle writes <id>.md and graph.html into dir and returns their paths.
func WriteBundle(dir string, b Bundle) (notePath, graphPath string, err error) {
	if b.MediaID == "" {
		return "", "", fmt.Errorf("bundle has no media id")
	}
	if err := helper.CreateFolder(dir); err != nil {
		return "", "", err
	}

	notePath = filepath.Join(dir, NoteFileName(b.MediaID))
	if err := os.WriteFile(notePath, []byte(b.Note), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write note: %w", err)
	}

	graphPath = filepath.Join(dir, GraphFileName)
	f, err := os.Create(graphPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create graph file: %w", err)
	}
	defer f.Close()

	if err := graph.RenderHTML(f, b.Graph); err != nil {
		return "", "", err
	}

	log.Info().Str("note", notePath).Str("graph", graphPath).Msg("Wrote weave bundle")
	return notePath, graphPath, nil
}
