package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weavoor/internal/config"
)

const testVideoID = "abc123XYZ_0"

var timedTextByLang = map[string]string{
	"en":        `<transcript><text start="0" dur="1">manual english</text><text start="1" dur="1">captions</text></transcript>`,
	"en-asr":    `<transcript><text start="0" dur="1">generated</text><text start="1" dur="1">generated</text><text start="2" dur="1">english</text></transcript>`,
	"de":        `<transcript><text start="0" dur="1">deutsch</text></transcript>`,
	"empty-asr": `<transcript></transcript>`,
}

func track(lang, kind, key string) string {
	k := ""
	if kind != "" {
		k = fmt.Sprintf(`,"kind":%q`, kind)
	}
	return fmt.Sprintf(`{"baseUrl":"/api/timedtext?v=%s&key=%s","languageCode":%q%s}`, testVideoID, key, lang, k)
}

func playerJSON(tracks ...string) string {
	if len(tracks) == 0 {
		return `{"playabilityStatus":{"status":"OK"}}`
	}
	list := ""
	for i, t := range tracks {
		if i > 0 {
			list += ","
		}
		list += t
	}
	return `{"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[` + list + `]}}}`
}

func newYouTubeServer(t *testing.T, player string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testVideoID, r.URL.Query().Get("v"))
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = %s;var meta = {"x":"}"};</script></html>`, player)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "3", r.Header.Get("X-Youtube-Client-Name"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, player)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		body, ok := timedTextByLang[r.URL.Query().Get("key")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testTranscriptConfig(baseURL string) config.TranscriptConfig {
	return config.TranscriptConfig{
		Language: "en",
		Captions: config.CaptionsConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
	}
}

const testURL = "https://www.youtube.com/watch?v=" + testVideoID

func TestCaptionSourcePrefersManualTrack(t *testing.T) {
	srv := newYouTubeServer(t, playerJSON(
		track("en", "asr", "en-asr"),
		track("en", "", "en"),
	))

	text, err := NewCaptionSource(testTranscriptConfig(srv.URL)).FetchTranscript(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, "manual english captions", text)
}

func TestCaptionSourceFallsBackToGeneratedTrack(t *testing.T) {
	srv := newYouTubeServer(t, playerJSON(
		track("de", "", "de"),
		track("en", "asr", "en-asr"),
	))

	text, err := NewCaptionSource(testTranscriptConfig(srv.URL)).FetchTranscript(context.Background(), testURL)
	require.NoError(t, err)
	assert.Equal(t, "generated english", text)
}

func TestManualCaptionSourceIgnoresGeneratedTrack(t *testing.T) {
	srv := newYouTubeServer(t, playerJSON(track("en", "asr", "en-asr")))

	_, err := NewManualCaptionSource(testTranscriptConfig(srv.URL)).FetchTranscript(context.Background(), testURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, NoCaptionsInLanguage, kind)
	assert.Equal(t, "en", LanguageOf(err))
}

func TestCaptionSourceNoTracksIsDisabled(t *testing.T) {
	srv := newYouTubeServer(t, playerJSON())

	_, err := NewCaptionSource(testTranscriptConfig(srv.URL)).FetchTranscript(context.Background(), testURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)
	kind, _ := KindOf(err)
	assert.Equal(t, CaptionsDisabled, kind)
}

func TestCaptionSourceNoTrackInLanguage(t *testing.T) {
	srv := newYouTubeServer(t, playerJSON(track("de", "", "de")))

	_, err := NewCaptionSource(testTranscriptConfig(srv.URL)).FetchTranscript(context.Background(), testURL)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, NoCaptionsInLanguage, kind)
}

func TestCaptionSourceEmptyTrackIsUnavailable(t *testing.T) {
	srv := newYouTubeServer(t, playerJSON(track("en", "asr", "empty-asr")))

	_, err := NewCaptionSource(testTranscriptConfig(srv.URL)).FetchTranscript(context.Background(), testURL)
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)
}

func TestCaptionSourceUnplayableVideo(t *testing.T) {
	srv := newYouTubeServer(t, `{"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}}`)

	_, err := NewCaptionSource(testTranscriptConfig(srv.URL)).FetchTranscript(context.Background(), testURL)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTranscriptUnavailable))
	kind, _ := KindOf(err)
	assert.Equal(t, DownloadFailed, kind)
	assert.Contains(t, err.Error(), "Video unavailable")
}

func TestCaptionSourceNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewCaptionSource(testTranscriptConfig(srv.URL)).FetchTranscript(context.Background(), testURL)
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, DownloadFailed, kind)
	assert.False(t, errors.Is(err, ErrTranscriptUnavailable))
}

func TestCaptionSourceRejectsURLWithoutID(t *testing.T) {
	srv := newYouTubeServer(t, playerJSON())

	_, err := NewCaptionSource(testTranscriptConfig(srv.URL)).FetchTranscript(context.Background(), "https://www.youtube.com/")
	require.Error(t, err)
	_, ok := KindOf(err)
	assert.False(t, ok)
}

func TestInnertubeCaptionSource(t *testing.T) {
	srv := newYouTubeServer(t, playerJSON(track("en", "asr", "en-asr")))

	src := NewInnertubeCaptionSource(testTranscriptConfig(srv.URL))
	assert.Equal(t, config.BackendCaptionsInnertube, src.Name())

	text, err := src.FetchTranscript(context.Background(), "https://youtu.be/"+testVideoID+"?t=42")
	require.NoError(t, err)
	assert.Equal(t, "generated english", text)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":"}\"{","b":{"c":1}}`, string(extractJSON([]byte(`{"a":"}\"{","b":{"c":1}};rest`))))
	assert.Nil(t, extractJSON([]byte(`{"unterminated":`)))
	assert.Nil(t, extractJSON([]byte(`nope`)))
}

func TestPickTrackRegionalVariant(t *testing.T) {
	tracks := []captionTrack{{LanguageCode: "en-GB", BaseURL: "gb"}}
	got, ok := pickTrack(tracks, "en", false)
	require.True(t, ok)
	assert.Equal(t, "gb", got.BaseURL)

	_, ok = pickTrack([]captionTrack{{LanguageCode: "eng"}}, "en", true)
	assert.False(t, ok)
}
