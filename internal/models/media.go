package models

// MediaItem is a processed URL. It is built once per weave and never updated.
type MediaItem struct {
	ID             string `json:"id"`
	SourceURL      string `json:"source_url"`
	TranscriptText string `json:"-"`
	SummaryText    string `json:"summary"`
}

// Metadata returns the index metadata stored alongside the item's summary.
func (m MediaItem) Metadata() map[string]string {
	return map[string]string{MetadataURLKey: m.SourceURL}
}
