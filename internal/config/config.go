package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"cinescript/internal/ai"
)

// Config holds everything the server binaries read from the environment.
type Config struct {
	// Server settings
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Screenplay spool
	UploadDir     string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	MaxUploadSize int64  `envconfig:"MAX_UPLOAD_SIZE" default:"20971520"`

	// Generation backend
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	AnalysisModel string        `envconfig:"AI_ANALYSIS_MODEL" default:"gemini-2.5-flash"`
	ImageModel    string        `envconfig:"AI_IMAGE_MODEL" default:"gemini-2.0-flash-preview-image-generation"`
	VideoModel    string        `envconfig:"AI_VIDEO_MODEL" default:"veo-3.0-generate-001"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	PollInterval  time.Duration `envconfig:"AI_POLL_INTERVAL" default:"8s"`
	PollLimit     int           `envconfig:"AI_POLL_LIMIT" default:"75"`

	// Secret field without an envconfig tag; read separately in Load.
	GeminiAPIKey string
}

// AI maps the backend settings onto a client configuration.
func (c *Config) AI() *ai.Config {
	return &ai.Config{
		BaseURL:        c.AIBaseURL,
		AnalysisModel:  c.AnalysisModel,
		ImageModel:     c.ImageModel,
		VideoModel:     c.VideoModel,
		RequestTimeout: c.AITimeout,
		PollInterval:   c.PollInterval,
		PollLimit:      c.PollLimit,
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}

	// The ambient key is optional; without it every project starts in key
	// selection instead of upload.
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	log.Info().
		Str("port", cfg.Port).
		Str("environment", cfg.Environment).
		Str("uploadDir", cfg.UploadDir).
		Int64("maxUploadSize", cfg.MaxUploadSize).
		Str("aiBaseURL", cfg.AIBaseURL).
		Str("analysisModel", cfg.AnalysisModel).
		Str("imageModel", cfg.ImageModel).
		Str("videoModel", cfg.VideoModel).
		Dur("aiTimeout", cfg.AITimeout).
		Dur("pollInterval", cfg.PollInterval).
		Int("pollLimit", cfg.PollLimit).
		Str("geminiAPIKey", maskSecret(cfg.GeminiAPIKey)).
		Msg("configuration loaded")

	return &cfg, nil
}

func maskSecret(s string) string {
	if s == "" {
		return "[not set]"
	}
	return "[set]"
}
