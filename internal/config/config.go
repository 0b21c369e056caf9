package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"weavoor/internal/models"
)

// Transcript backends.
const (
	BackendCaptions          = "captions"
	BackendCaptionsManual    = "captions-manual"
	BackendCaptionsInnertube = "captions-innertube"
	BackendCloud             = "cloud"
	BackendDownload          = "download"
)

// Audio transcribers used by the download backend.
const (
	TranscriberWhisperCPP = "whisper-cpp"
	TranscriberOpenAI     = "openai"
)

// Provider names for generation and embedding.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Index backends.
const (
	IndexChromem  = "chromem"
	IndexPostgres = "postgres"
)

type Config struct {
	Transcript TranscriptConfig `yaml:"transcript"`
	Generation LLMConfig        `yaml:"generation"`
	Embedding  LLMConfig        `yaml:"embedding"`
	Index      IndexConfig      `yaml:"index"`
	Weave      WeaveConfig      `yaml:"weave"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type TranscriptConfig struct {
	Backend   string         `yaml:"backend"`
	Fallbacks []string       `yaml:"fallbacks"`
	Language  string         `yaml:"language"`
	Captions  CaptionsConfig `yaml:"captions"`
	Cloud     CloudConfig    `yaml:"cloud"`
	Download  DownloadConfig `yaml:"download"`
}

type CaptionsConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type CloudConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Key          string        `yaml:"key"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

type DownloadConfig struct {
	YtDlpPath   string        `yaml:"ytdlp_path"`
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	TempDir     string        `yaml:"temp_dir"`
	Transcriber string        `yaml:"transcriber"`
	Whisper     WhisperConfig `yaml:"whisper"`
	OpenAI      LLMConfig     `yaml:"openai"`
}

type WhisperConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ModelPath  string `yaml:"model_path"`
	Threads    int    `yaml:"threads"`
	Prompt     string `yaml:"prompt"`
}

// LLMConfig describes a hosted model endpoint.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type IndexConfig struct {
	Backend     string         `yaml:"backend"`
	StoragePath string         `yaml:"storage_path"`
	Collection  string         `yaml:"collection"`
	Compress    bool           `yaml:"compress"`
	IncludeSelf bool           `yaml:"include_self"`
	Postgres    PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
	Debug  bool   `yaml:"debug"`
}

type WeaveConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	NeighborLimit       int     `yaml:"neighbor_limit"`
	SummaryCharBudget   int     `yaml:"summary_char_budget"`
	OutputDir           string  `yaml:"output_dir"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads the yaml file at path, then secrets from .env and the
// environment, and validates the result. A missing file yields defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Transcript.Backend, "WEAVOOR_TRANSCRIPT_BACKEND")
	set(&c.Index.Backend, "WEAVOOR_INDEX_BACKEND")
	set(&c.Index.StoragePath, "WEAVOOR_INDEX_PATH")
	set(&c.Index.Postgres.DSN, "WEAVOOR_POSTGRES_DSN")
	set(&c.Logging.Level, "WEAVOOR_LOG_LEVEL")
	set(&c.Server.Addr, "WEAVOOR_ADDR")
	set(&c.Transcript.Cloud.Key, "ASSEMBLYAI_API_KEY")

	openAIKey := strings.TrimSpace(getenv("OPENAI_API_KEY"))
	geminiKey := strings.TrimSpace(getenv("GEMINI_API_KEY"))

	for _, llm := range []*LLMConfig{&c.Generation, &c.Embedding, &c.Transcript.Download.OpenAI} {
		if llm.Key != "" {
			continue
		}
		switch llm.Provider {
		case "", ProviderOpenAI:
			llm.Key = openAIKey
		case ProviderGemini:
			llm.Key = geminiKey
		}
	}
}

// Validate fills defaults and rejects unusable settings.
func (c *Config) Validate() error {
	c.applyDefaults()

	for _, b := range c.Transcript.Backends() {
		switch b {
		case BackendCaptions, BackendCaptionsManual, BackendCaptionsInnertube, BackendDownload:
		case BackendCloud:
			if c.Transcript.Cloud.Key == "" {
				return fmt.Errorf("transcript.cloud.key is required for the %s backend", BackendCloud)
			}
		default:
			return fmt.Errorf("unknown transcript backend %q", b)
		}
		if b == BackendDownload {
			if err := c.Transcript.Download.validate(); err != nil {
				return err
			}
		}
	}

	switch c.Generation.Provider {
	case ProviderOpenAI, ProviderGemini:
	case ProviderOllama:
	default:
		return fmt.Errorf("unknown generation provider %q", c.Generation.Provider)
	}
	if c.Generation.Provider != ProviderOllama && c.Generation.Key == "" {
		return fmt.Errorf("generation.key is required for provider %s", c.Generation.Provider)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.Key == "" {
			return fmt.Errorf("embedding.key is required for provider %s", ProviderOpenAI)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}

	switch c.Index.Backend {
	case IndexChromem:
		if c.Index.StoragePath == "" {
			return fmt.Errorf("index.storage_path is required")
		}
	case IndexPostgres:
		if c.Index.Postgres.DSN == "" {
			return fmt.Errorf("index.postgres.dsn is required")
		}
		if d := c.Index.Postgres.Driver; d != "pgdriver" && d != "pq" {
			return fmt.Errorf("unknown postgres driver %q", d)
		}
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}

	if c.Weave.SimilarityThreshold <= 0 || c.Weave.SimilarityThreshold > 4 {
		return fmt.Errorf("weave.similarity_threshold must be in (0, 4], got %v", c.Weave.SimilarityThreshold)
	}
	if c.Weave.NeighborLimit < 0 {
		return fmt.Errorf("weave.neighbor_limit must not be negative")
	}
	if c.Weave.SummaryCharBudget < 0 {
		return fmt.Errorf("weave.summary_char_budget must not be negative")
	}

	return nil
}

func (d *DownloadConfig) validate() error {
	switch d.Transcriber {
	case TranscriberWhisperCPP:
		if d.Whisper.ModelPath == "" {
			return fmt.Errorf("transcript.download.whisper.model_path is required")
		}
	case TranscriberOpenAI:
		if d.OpenAI.Key == "" {
			return fmt.Errorf("transcript.download.openai.key is required")
		}
	default:
		return fmt.Errorf("unknown audio transcriber %q", d.Transcriber)
	}
	return nil
}

func (c *Config) applyDefaults() {
	t := &c.Transcript
	if t.Backend == "" {
		t.Backend = BackendCaptions
	}
	if t.Language == "" {
		t.Language = "en"
	}
	if t.Captions.BaseURL == "" {
		t.Captions.BaseURL = "https://www.youtube.com"
	}
	if t.Captions.Timeout == 0 {
		t.Captions.Timeout = 30 * time.Second
	}
	if t.Cloud.BaseURL == "" {
		t.Cloud.BaseURL = "https://api.assemblyai.com"
	}
	if t.Cloud.PollInterval == 0 {
		t.Cloud.PollInterval = 3 * time.Second
	}
	if t.Cloud.Timeout == 0 {
		t.Cloud.Timeout = 15 * time.Minute
	}
	if t.Download.YtDlpPath == "" {
		t.Download.YtDlpPath = "yt-dlp"
	}
	if t.Download.FFmpegPath == "" {
		t.Download.FFmpegPath = "ffmpeg"
	}
	if t.Download.Transcriber == "" {
		t.Download.Transcriber = TranscriberWhisperCPP
	}
	if t.Download.Whisper.BinaryPath == "" {
		t.Download.Whisper.BinaryPath = "whisper-cli"
	}
	if t.Download.Whisper.Threads == 0 {
		t.Download.Whisper.Threads = 4
	}
	if t.Download.OpenAI.BaseURL == "" {
		t.Download.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if t.Download.OpenAI.Model == "" {
		t.Download.OpenAI.Model = "whisper-1"
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = ProviderOpenAI
	}
	if c.Generation.Model == "" {
		switch c.Generation.Provider {
		case ProviderGemini:
			c.Generation.Model = "gemini-2.5-flash"
		case ProviderOllama:
			c.Generation.Model = "llama3.2"
		default:
			c.Generation.Model = "gpt-4o-mini"
		}
	}
	if c.Generation.Provider == ProviderOllama && c.Generation.BaseURL == "" {
		c.Generation.BaseURL = "http://localhost:11434"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.Model == "" {
		if c.Embedding.Provider == ProviderOllama {
			c.Embedding.Model = "nomic-embed-text"
		} else {
			c.Embedding.Model = "text-embedding-ada-002"
		}
	}
	if c.Embedding.Provider == ProviderOllama && c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "http://localhost:11434"
	}

	if c.Index.Backend == "" {
		c.Index.Backend = IndexChromem
	}
	if c.Index.StoragePath == "" {
		c.Index.StoragePath = "db"
	}
	if c.Index.Collection == "" {
		c.Index.Collection = models.DefaultCollectionName
	}
	if c.Index.Postgres.Driver == "" {
		c.Index.Postgres.Driver = "pgdriver"
	}

	if c.Weave.SimilarityThreshold == 0 {
		c.Weave.SimilarityThreshold = models.DefaultSimilarityThreshold
	}
	if c.Weave.NeighborLimit == 0 {
		c.Weave.NeighborLimit = models.DefaultNeighborLimit
	}
	if c.Weave.SummaryCharBudget == 0 {
		c.Weave.SummaryCharBudget = models.DefaultSummaryCharBudget
	}
	if c.Weave.OutputDir == "" {
		c.Weave.OutputDir = "weaves"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8501"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Redacted returns a copy safe to print, with secrets masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		if len(s) <= 8 {
			return "****"
		}
		return s[:4] + "****"
	}
	c.Generation.Key = mask(c.Generation.Key)
	c.Embedding.Key = mask(c.Embedding.Key)
	c.Transcript.Cloud.Key = mask(c.Transcript.Cloud.Key)
	c.Transcript.Download.OpenAI.Key = mask(c.Transcript.Download.OpenAI.Key)
	if c.Index.Postgres.DSN != "" {
		c.Index.Postgres.DSN = "****"
	}
	c.Transcript.Fallbacks = append([]string(nil), c.Transcript.Fallbacks...)
	return c
}

// Backends lists the configured transcript backends in fallback order.
func (t TranscriptConfig) Backends() []string {
	return append([]string{t.Backend}, t.Fallbacks...)
}
