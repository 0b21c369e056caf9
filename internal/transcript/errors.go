package transcript

import (
	"errors"
	"fmt"
)

// Kind classifies why a transcript could not be produced.
type Kind int

const (
	NoCaptionsInLanguage Kind = iota + 1
	CaptionsDisabled
	TranscriptionServiceFailed
	DownloadFailed
)

func (k Kind) String() string {
	switch k {
	case NoCaptionsInLanguage:
		return "no_captions_in_language"
	case CaptionsDisabled:
		return "captions_disabled"
	case TranscriptionServiceFailed:
		return "transcription_service_failed"
	case DownloadFailed:
		return "download_failed"
	default:
		return "unknown"
	}
}

// ErrTranscriptUnavailable matches errors of kind NoCaptionsInLanguage and
// CaptionsDisabled. A fallback chain moves on only for these.
var ErrTranscriptUnavailable = errors.New("transcript unavailable")

// Error is returned by every Source.
type Error struct {
	Kind     Kind
	MediaID  string
	// Language is the caption language that was asked for, if any.
	Language string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transcript %s: %s", e.MediaID, e.Kind)
	}
	return fmt.Sprintf("transcript %s: %s: %v", e.MediaID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	if target != ErrTranscriptUnavailable {
		return false
	}
	return e.Kind == NoCaptionsInLanguage || e.Kind == CaptionsDisabled
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind, true
	}
	return 0, false
}

// LanguageOf reports the requested language of the first *Error in err's chain.
func LanguageOf(err error) string {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Language
	}
	return ""
}

func newError(kind Kind, mediaID string, format string, args ...any) *Error {
	return &Error{Kind: kind, MediaID: mediaID, Err: fmt.Errorf(format, args...)}
}
