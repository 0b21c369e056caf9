package models

import "errors"

// IndexEntry is one stored summary in the similarity index.
type IndexEntry struct {
	ID        string            `json:"id"`
	Embedding []float32         `json:"embedding,omitempty"`
	Document  string            `json:"document"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Neighbor is an index entry returned by a nearest-neighbour query.
// Distance is squared L2 distance between embeddings, lower means more similar.
type Neighbor struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Distance float64           `json:"distance"`
}

// URL returns the source URL recorded for the neighbor, if any.
func (n Neighbor) URL() string {
	return n.Metadata[MetadataURLKey]
}

// SimilarityEdge links the new item to a neighbor. Never persisted.
type SimilarityEdge struct {
	FromID   string  `json:"from"`
	ToID     string  `json:"to"`
	Distance float64 `json:"distance"`
}

// ErrEntryNotFound is returned when an index has no entry with the requested id.
var ErrEntryNotFound = errors.New("index entry not found")
