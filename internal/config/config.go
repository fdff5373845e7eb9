// Package config loads the studycast service configuration from an
// optional YAML file and STUDYCAST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/studycast/internal/llm"
)

// Config holds the service configuration.
type Config struct {
	Addr          string `yaml:"addr"`
	DataDir       string `yaml:"data_dir"`
	DBPath        string `yaml:"db"`
	PublicBaseURL string `yaml:"public_base_url"`
	LogLevel      string `yaml:"log_level"`

	RetrievalK    int         `yaml:"retrieval_k"`
	MaxQuestions  int         `yaml:"max_questions"`
	SnapshotLimit int         `yaml:"corpus_snapshot_limit"`
	MaxUploadMB   int         `yaml:"max_upload_mb"`
	Chunk         ChunkConfig `yaml:"chunk"`
	Queue         QueueConfig `yaml:"queue"`

	LLMProvider    string `yaml:"llm_provider"`
	Voice          string `yaml:"voice"`
	SpeechModel    string `yaml:"speech_model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// ChunkConfig sizes corpus chunks in whitespace tokens.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// QueueConfig sizes the background remediation queue.
type QueueConfig struct {
	Size    int `yaml:"size"`
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the built-in defaults. DataDir and DBPath are left
// empty and resolved by Load.
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":8080",
		LogLevel:       "info",
		RetrievalK:     3,
		MaxQuestions:   15,
		SnapshotLimit:  200,
		MaxUploadMB:    50,
		Chunk:          ChunkConfig{Size: 500, Overlap: 50},
		Queue:          QueueConfig{Size: 32, Workers: 1},
		Voice:          "nova",
		SpeechModel:    "tts-1",
		EmbeddingModel: "text-embedding-3-small",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "studycast.db")
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"STUDYCAST_ADDR":            &c.Addr,
		"STUDYCAST_DATA_DIR":        &c.DataDir,
		"STUDYCAST_DB":              &c.DBPath,
		"STUDYCAST_PUBLIC_BASE_URL": &c.PublicBaseURL,
		"STUDYCAST_LOG_LEVEL":       &c.LogLevel,
		"STUDYCAST_LLM_PROVIDER":    &c.LLMProvider,
		"STUDYCAST_SPEECH_VOICE":    &c.Voice,
		"STUDYCAST_SPEECH_MODEL":    &c.SpeechModel,
		"STUDYCAST_EMBEDDING_MODEL": &c.EmbeddingModel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"STUDYCAST_RETRIEVAL_K":    &c.RetrievalK,
		"STUDYCAST_MAX_QUESTIONS":  &c.MaxQuestions,
		"STUDYCAST_SNAPSHOT_LIMIT": &c.SnapshotLimit,
		"STUDYCAST_MAX_UPLOAD_MB":  &c.MaxUploadMB,
		"STUDYCAST_CHUNK_SIZE":     &c.Chunk.Size,
		"STUDYCAST_CHUNK_OVERLAP":  &c.Chunk.Overlap,
		"STUDYCAST_QUEUE_SIZE":     &c.Queue.Size,
		"STUDYCAST_QUEUE_WORKERS":  &c.Queue.Workers,
	}
	var errs []error
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			continue
		}
		*dst = n
	}
	return errors.Join(errs...)
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.RetrievalK <= 0 {
		return errors.New("retrieval_k must be > 0")
	}
	if c.MaxQuestions <= 0 {
		return errors.New("max_questions must be > 0")
	}
	if c.SnapshotLimit <= 0 {
		return errors.New("corpus_snapshot_limit must be > 0")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("max_upload_mb must be > 0")
	}
	if c.Chunk.Size <= 0 {
		return errors.New("chunk.size must be > 0")
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be in [0, %d)", c.Chunk.Size)
	}
	if c.Queue.Size <= 0 || c.Queue.Workers <= 0 {
		return errors.New("queue.size and queue.workers must be > 0")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DocsDir holds the skill tree and assessment documents.
func (c *Config) DocsDir() string { return filepath.Join(c.DataDir, "docs") }

// AudioDir holds the generated podcasts.
func (c *Config) AudioDir() string { return filepath.Join(c.DataDir, "audio") }

// UploadDir holds uploads while they are indexed.
func (c *Config) UploadDir() string { return filepath.Join(c.DataDir, "uploads") }

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// BaseURL returns the public origin used in feed links. Without an
// explicit public_base_url it is derived from the listen address.
func (c *Config) BaseURL() string {
	if c.PublicBaseURL != "" {
		return strings.TrimRight(c.PublicBaseURL, "/")
	}
	if strings.HasPrefix(c.Addr, ":") {
		return "http://localhost" + c.Addr
	}
	return "http://" + c.Addr
}

// ApplyLLM copies the service-level model choices onto an LLM config.
func (c *Config) ApplyLLM(lc llm.Config) llm.Config {
	if c.LLMProvider != "" {
		lc.Provider = c.LLMProvider
	}
	if c.Voice != "" {
		lc.Speech.Voice = c.Voice
	}
	if c.SpeechModel != "" {
		lc.Speech.Model = c.SpeechModel
	}
	if c.EmbeddingModel != "" {
		lc.Embedding.Model = c.EmbeddingModel
	}
	return lc
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func defaultDataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "studycast"), nil
}
