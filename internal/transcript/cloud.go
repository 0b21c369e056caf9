package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"weavoor/internal/config"
	"weavoor/internal/helper"
)

// CloudSource submits the media URL to an AssemblyAI-compatible
// speech-to-text API and polls until the job settles.
type CloudSource struct {
	client       *http.Client
	baseURL      string
	key          string
	language     string
	pollInterval time.Duration
	timeout      time.Duration
}

func NewCloudSource(cfg config.CloudConfig, language string) *CloudSource {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	return &CloudSource{
		client:       &http.Client{Timeout: time.Minute},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		key:          cfg.Key,
		language:     language,
		pollInterval: poll,
		timeout:      cfg.Timeout,
	}
}

func (s *CloudSource) Name() string { return config.BackendCloud }

type cloudSubmitRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type cloudTranscript struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (s *CloudSource) FetchTranscript(ctx context.Context, sourceURL string) (string, error) {
	mediaID, err := helper.MediaID(sourceURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.BackendCloud, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	job, err := s.submit(ctx, sourceURL)
	if err != nil {
		return "", &Error{Kind: TranscriptionServiceFailed, MediaID: mediaID, Err: err}
	}
	log.Info().Str("media_id", mediaID).Str("job_id", job.ID).Msg("cloud transcription submitted")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		switch job.Status {
		case "completed":
			if strings.TrimSpace(job.Text) == "" {
				return "", newError(TranscriptionServiceFailed, mediaID, "job %s completed with empty text", job.ID)
			}
			return job.Text, nil
		case "error":
			return "", newError(TranscriptionServiceFailed, mediaID, "job %s failed: %s", job.ID, job.Error)
		}

		select {
		case <-ctx.Done():
			return "", &Error{Kind: TranscriptionServiceFailed, MediaID: mediaID, Err: ctx.Err()}
		case <-ticker.C:
		}

		job, err = s.poll(ctx, job.ID)
		if err != nil {
			return "", &Error{Kind: TranscriptionServiceFailed, MediaID: mediaID, Err: err}
		}
		log.Debug().Str("media_id", mediaID).Str("job_id", job.ID).Str("status", job.Status).Msg("cloud transcription status")
	}
}

func (s *CloudSource) submit(ctx context.Context, sourceURL string) (*cloudTranscript, error) {
	body, err := json.Marshal(cloudSubmitRequest{AudioURL: sourceURL, LanguageCode: s.language})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *CloudSource) poll(ctx context.Context, id string) (*cloudTranscript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return nil, err
	}
	return s.do(req)
}

func (s *CloudSource) do(req *http.Request) (*cloudTranscript, error) {
	req.Header.Set("Authorization", s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: HTTP %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out cloudTranscript
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode transcript job: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("transcript job response without id")
	}
	return &out, nil
}
