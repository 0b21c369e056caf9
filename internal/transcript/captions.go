package transcript

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"weavoor/internal/config"
	"weavoor/internal/helper"
	"weavoor/internal/parser"
)

type playerFetcher func(ctx context.Context, client *http.Client, baseURL, videoID, lang string) (*playerResponse, error)

func watchPagePlayer(ctx context.Context, client *http.Client, baseURL, videoID, _ string) (*playerResponse, error) {
	return fetchWatchPage(ctx, client, baseURL, videoID)
}

// CaptionSource fetches published caption tracks.
type CaptionSource struct {
	name           string
	client         *http.Client
	baseURL        string
	language       string
	allowGenerated bool
	player         playerFetcher
}

// NewCaptionSource scrapes the watch page and accepts manual tracks first,
// then machine-generated ones.
func NewCaptionSource(cfg config.TranscriptConfig) *CaptionSource {
	return newCaptionSource(config.BackendCaptions, cfg, true, watchPagePlayer)
}

// NewManualCaptionSource accepts manual tracks only.
func NewManualCaptionSource(cfg config.TranscriptConfig) *CaptionSource {
	return newCaptionSource(config.BackendCaptionsManual, cfg, false, watchPagePlayer)
}

// NewInnertubeCaptionSource reads tracks from the Innertube /player API of
// the instance at cfg.Captions.BaseURL.
func NewInnertubeCaptionSource(cfg config.TranscriptConfig) *CaptionSource {
	return newCaptionSource(config.BackendCaptionsInnertube, cfg, true, fetchInnertubePlayer)
}

func newCaptionSource(name string, cfg config.TranscriptConfig, allowGenerated bool, player playerFetcher) *CaptionSource {
	return &CaptionSource{
		name:           name,
		client:         &http.Client{Timeout: cfg.Captions.Timeout},
		baseURL:        cfg.Captions.BaseURL,
		language:       cfg.Language,
		allowGenerated: allowGenerated,
		player:         player,
	}
}

func (s *CaptionSource) Name() string { return s.name }

func (s *CaptionSource) FetchTranscript(ctx context.Context, sourceURL string) (string, error) {
	videoID, err := helper.MediaID(sourceURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.name, err)
	}

	player, err := s.player(ctx, s.client, s.baseURL, videoID, s.language)
	if err != nil {
		return "", &Error{Kind: DownloadFailed, MediaID: videoID, Err: err}
	}

	tracks := player.tracks()
	if len(tracks) == 0 {
		if reason, ok := player.unplayable(); ok {
			return "", newError(DownloadFailed, videoID, "video unplayable: %s", reason)
		}
		return "", newError(CaptionsDisabled, videoID, "no caption tracks")
	}

	track, ok := pickTrack(tracks, s.language, s.allowGenerated)
	if !ok {
		terr := newError(NoCaptionsInLanguage, videoID, "no %q track among %d", s.language, len(tracks))
		terr.Language = s.language
		return "", terr
	}

	log.Debug().
		Str("backend", s.name).
		Str("media_id", videoID).
		Str("lang", track.LanguageCode).
		Bool("generated", track.generated()).
		Msg("caption track selected")

	data, err := fetchCaptionTrack(ctx, s.client, s.baseURL, track.BaseURL)
	if err != nil {
		return "", &Error{Kind: DownloadFailed, MediaID: videoID, Err: err}
	}
	segments, err := parser.ParseTimedText(data)
	if err != nil {
		return "", &Error{Kind: DownloadFailed, MediaID: videoID, Err: err}
	}

	text := parser.Join(segments)
	if text == "" {
		terr := newError(NoCaptionsInLanguage, videoID, "caption track is empty")
		terr.Language = s.language
		return "", terr
	}
	return text, nil
}
