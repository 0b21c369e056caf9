package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"weavoor/internal/config"
	"weavoor/internal/executor"
	"weavoor/internal/helper"
)

// AudioTranscriber turns a 16 kHz mono WAV file into text.
type AudioTranscriber interface {
	TranscribeAudio(ctx context.Context, wavPath string) (string, error)
}

// DownloadSource downloads the best audio stream with yt-dlp, converts it
// with ffmpeg and hands the WAV to an AudioTranscriber. Everything happens
// in a temp dir that is removed before FetchTranscript returns.
type DownloadSource struct {
	exec        executor.Executor
	cfg         config.DownloadConfig
	transcriber AudioTranscriber
}

func NewDownloadSource(cfg config.DownloadConfig, exec executor.Executor, transcriber AudioTranscriber) *DownloadSource {
	return &DownloadSource{exec: exec, cfg: cfg, transcriber: transcriber}
}

func (s *DownloadSource) Name() string { return config.BackendDownload }

func (s *DownloadSource) FetchTranscript(ctx context.Context, sourceURL string) (string, error) {
	mediaID, err := helper.MediaID(sourceURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.BackendDownload, err)
	}

	if s.cfg.TempDir != "" {
		if err := helper.CreateFolder(s.cfg.TempDir); err != nil {
			return "", &Error{Kind: DownloadFailed, MediaID: mediaID, Err: err}
		}
	}
	workDir, err := os.MkdirTemp(s.cfg.TempDir, "weavoor-*")
	if err != nil {
		return "", newError(DownloadFailed, mediaID, "create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	audioPath, err := s.downloadAudio(ctx, workDir, sourceURL)
	if err != nil {
		return "", &Error{Kind: DownloadFailed, MediaID: mediaID, Err: err}
	}

	wavPath, err := s.convertToWAV(ctx, workDir, audioPath)
	if err != nil {
		return "", &Error{Kind: DownloadFailed, MediaID: mediaID, Err: err}
	}

	text, err := s.transcriber.TranscribeAudio(ctx, wavPath)
	if err != nil {
		return "", &Error{Kind: TranscriptionServiceFailed, MediaID: mediaID, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", newError(TranscriptionServiceFailed, mediaID, "transcriber returned no text")
	}

	log.Info().Str("media_id", mediaID).Int("chars", len(text)).Msg("audio transcribed")
	return text, nil
}

func (s *DownloadSource) downloadAudio(ctx context.Context, workDir, sourceURL string) (string, error) {
	args := []string{
		"-f", "bestaudio",
		"--no-playlist",
		"-o", filepath.Join(workDir, "source.%(ext)s"),
		sourceURL,
	}
	if _, err := s.exec.Execute(ctx, s.cfg.YtDlpPath, args...); err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, "source.*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("yt-dlp produced no audio file")
	}
	return matches[0], nil
}

func (s *DownloadSource) convertToWAV(ctx context.Context, workDir, audioPath string) (string, error) {
	wavPath := filepath.Join(workDir, "audio.wav")
	args := []string{
		"-i", audioPath,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		wavPath,
	}
	if _, err := s.exec.Execute(ctx, s.cfg.FFmpegPath, args...); err != nil {
		return "", fmt.Errorf("ffmpeg convert: %w", err)
	}
	return wavPath, nil
}
