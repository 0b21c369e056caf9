package weave

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"weavoor/internal/summarizer"
	"weavoor/internal/transcript"
)

// Kind groups failures by what the user can do about them.
type Kind string

const (
	KindEmptyURL             Kind = "empty_url"
	KindNoCaptions           Kind = "no_captions"
	KindCaptionsDisabled     Kind = "captions_disabled"
	KindTranscriptionService Kind = "transcription_service"
	KindDownload             Kind = "download"
	KindGeneration           Kind = "generation"
	KindUnexpected           Kind = "unexpected"
)

const noCaptionsHint = "Try a different video with captions enabled (most popular podcasts do!)."

// Message is the user-facing form of a failed weave.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
	Hint string `json:"hint,omitempty"`
}

// Describe converts an error returned by Weave into a Message.
func Describe(err error) Message {
	if errors.Is(err, ErrEmptyURL) {
		return Message{Kind: KindEmptyURL, Text: "Please paste a URL!"}
	}

	if kind, ok := transcript.KindOf(err); ok {
		switch kind {
		case transcript.NoCaptionsInLanguage:
			text := fmt.Sprintf("No %s transcript found for this video.", languageName(transcript.LanguageOf(err)))
			return Message{Kind: KindNoCaptions, Text: text, Hint: noCaptionsHint}
		case transcript.CaptionsDisabled:
			return Message{Kind: KindCaptionsDisabled, Text: "Transcripts are disabled for this video."}
		case transcript.TranscriptionServiceFailed:
			return unexpected(KindTranscriptionService, err)
		case transcript.DownloadFailed:
			return unexpected(KindDownload, err)
		}
	}

	var genErr *summarizer.GenerationError
	if errors.As(err, &genErr) {
		return unexpected(KindGeneration, err)
	}

	return unexpected(KindUnexpected, err)
}

// languageName returns the English name of a caption language code.
// An empty code means the default, English.
func languageName(code string) string {
	if code == "" {
		return "English"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

func unexpected(kind Kind, err error) Message {
	text := "Unexpected error"
	if err != nil {
		text += ": " + err.Error()
	}
	return Message{Kind: kind, Text: text}
}
