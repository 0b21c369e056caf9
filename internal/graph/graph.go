// Package graph builds the star graph that links a new summary to its close
// neighbours and renders it for the browser.
package graph

import (
	"weavoor/internal/helper"
	"weavoor/internal/models"
)

const (
	newNodeColor = "#00ff00"
	newNodeSize  = 30
)

// Node is a vertex of the weave graph. Title is shown on hover.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
	Size  int    `json:"size,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Graph is a star centred on the NEW node. Nodes and edges keep the order of
// the neighbours they were built from.
type Graph struct {
	Nodes []Node                  `json:"nodes"`
	Edges []models.SimilarityEdge `json:"edges"`
}

// Build returns the graph for newSummary and the number of connections made.
// A neighbour is connected only when its distance is strictly below threshold.
// Node ids are unique: a neighbour whose id is already taken, including by the
// NEW node, is left out.
func Build(newSummary string, neighbors []models.Neighbor, threshold float64) (*Graph, int) {
	g := &Graph{
		Nodes: []Node{{
			ID:    models.NewNodeID,
			Label: models.NewNodeID,
			Title: helper.FlattenNewlines(newSummary),
			Color: newNodeColor,
			Size:  newNodeSize,
		}},
		Edges: []models.SimilarityEdge{},
	}

	seen := map[string]bool{models.NewNodeID: true}
	for _, n := range neighbors {
		if n.Distance >= threshold || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		g.Nodes = append(g.Nodes, Node{
			ID:    n.ID,
			Label: n.ID,
			Title: helper.Preview(n.Document, models.DefaultPreviewChars),
			URL:   n.URL(),
		})
		g.Edges = append(g.Edges, models.SimilarityEdge{
			FromID:   models.NewNodeID,
			ToID:     n.ID,
			Distance: n.Distance,
		})
	}

	return g, len(g.Edges)
}
