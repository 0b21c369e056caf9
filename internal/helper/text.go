package helper

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNoMediaID is returned when no identifier can be derived from a URL.
var ErrNoMediaID = errors.New("cannot derive media id from url")

// MediaID derives the short identifier used as index key and note file stem.
//
//	https://www.youtube.com/watch?v=abc&t=10 -> abc
//	https://youtu.be/abc?si=x                -> abc
//	https://example.com/podcasts/ep-42       -> ep-42
func MediaID(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrNoMediaID
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Join(ErrNoMediaID, err)
	}

	if v := u.Query().Get("v"); v != "" {
		return v, nil
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if strings.EqualFold(strings.TrimPrefix(u.Hostname(), "www."), "youtu.be") && len(segments) > 0 {
		return segments[0], nil
	}
	if len(segments) == 0 {
		return "", ErrNoMediaID
	}
	return segments[len(segments)-1], nil
}

// TruncateRunes returns at most n characters of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Preview returns the first n characters of s followed by an ellipsis.
func Preview(s string, n int) string {
	return TruncateRunes(s, n) + "..."
}

// FlattenNewlines replaces line breaks with spaces.
func FlattenNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
