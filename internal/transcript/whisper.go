package transcript

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"weavoor/internal/config"
	"weavoor/internal/executor"
	"weavoor/internal/parser"
)

// NewAudioTranscriber selects the transcriber named by cfg.Transcriber.
func NewAudioTranscriber(cfg config.DownloadConfig, language string, exec executor.Executor) (AudioTranscriber, error) {
	switch cfg.Transcriber {
	case config.TranscriberWhisperCPP, "":
		return NewWhisperCPP(cfg.Whisper, language, exec), nil
	case config.TranscriberOpenAI:
		return NewOpenAIWhisper(cfg.OpenAI, language), nil
	default:
		return nil, fmt.Errorf("unknown audio transcriber %q", cfg.Transcriber)
	}
}

// WhisperCPP runs a local whisper.cpp binary and reads back its SRT output.
type WhisperCPP struct {
	exec     executor.Executor
	cfg      config.WhisperConfig
	language string
}

func NewWhisperCPP(cfg config.WhisperConfig, language string, exec executor.Executor) *WhisperCPP {
	return &WhisperCPP{exec: exec, cfg: cfg, language: language}
}

func (w *WhisperCPP) TranscribeAudio(ctx context.Context, wavPath string) (string, error) {
	// whisper appends .srt to the prefix
	outputPrefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))

	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", wavPath,
		"-osrt",
		"-l", w.language,
		"-t", strconv.Itoa(w.cfg.Threads),
	}
	if w.cfg.Prompt != "" {
		args = append(args, "--prompt", w.cfg.Prompt)
	}
	args = append(args, "--output-file", outputPrefix)

	if _, err := w.exec.Execute(ctx, w.cfg.BinaryPath, args...); err != nil {
		return "", fmt.Errorf("whisper transcribe: %w", err)
	}

	segments, err := parser.ParseFile(outputPrefix + ".srt")
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}
	return parser.Join(segments), nil
}

// OpenAIWhisper posts the WAV file to an OpenAI-compatible
// /audio/transcriptions endpoint.
type OpenAIWhisper struct {
	client   *http.Client
	baseURL  string
	key      string
	model    string
	language string
}

func NewOpenAIWhisper(cfg config.LLMConfig, language string) *OpenAIWhisper {
	return &OpenAIWhisper{
		client:   &http.Client{Timeout: 10 * time.Minute},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		key:      cfg.Key,
		model:    cfg.Model,
		language: language,
	}
}

func (w *OpenAIWhisper) TranscribeAudio(ctx context.Context, wavPath string) (string, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("buffer audio: %w", err)
	}
	fields := map[string]string{
		"model":           w.model,
		"language":        w.language,
		"response_format": "text",
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.key)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper api: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read whisper api response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper api: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

var (
	_ AudioTranscriber = (*WhisperCPP)(nil)
	_ AudioTranscriber = (*OpenAIWhisper)(nil)
)
