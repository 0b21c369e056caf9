package models

const (
	// SummaryPromptTemplate is sent to the generation model with the truncated transcript.
	SummaryPromptTemplate = "Summarize in 5 short bullets:\n\n%s"

	// NewNodeID names the central node of every weave graph.
	NewNodeID = "NEW"

	// MetadataURLKey holds the source URL in an index entry's metadata.
	MetadataURLKey = "url"

	DefaultSimilarityThreshold = 0.25
	DefaultNeighborLimit       = 10
	DefaultSummaryCharBudget   = 15000
	DefaultPreviewChars        = 100
	DefaultCollectionName      = "weaves"
)
