package internal

import (
	"errors"
	"os"
	"strconv"
	"time"
)

const Version = "0.1.0"

type Config struct {
	Port     string
	LogLevel string

	// Secret store backend (one object per secret under SecretsPrefix).
	S3Endpoint    string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	SecretsPrefix string

	// Shared media download.
	DownloadTimeout time.Duration

	// YouTube resumable upload.
	YouTubeChunkSize  int64
	YouTubeMaxRetries int
	YouTubeTimeout    time.Duration

	// Meta Graph API (facebook direct fetch, instagram container flow).
	GraphUploadTimeout    time.Duration
	GraphPollTimeout      time.Duration
	ContainerPollInterval time.Duration
	ContainerMaxAttempts  int

	// TikTok browser automation.
	TikTokNavigationTimeout time.Duration
	TikTokProcessingTimeout time.Duration
	TikTokStepTimeout       time.Duration
	TikTokSettleDelay       time.Duration
	TikTokHeadless          bool
	ScreenshotDir           string
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Port:     firstNonEmpty(os.Getenv("PORT"), "8080"),
		LogLevel: os.Getenv("LOG_LEVEL"),

		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3Region:      os.Getenv("S3_REGION"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3AccessKey:   firstNonEmpty(os.Getenv("S3_ACCESS_KEY"), os.Getenv("S3_ACCESS_KEY_ID")),
		S3SecretKey:   firstNonEmpty(os.Getenv("S3_SECRET_ACCESS_KEY"), os.Getenv("S3_SECRET_ACCESS_KEY_ID")),
		SecretsPrefix: "secrets/",

		DownloadTimeout: 5 * time.Minute,

		YouTubeChunkSize:  256 * 1024,
		YouTubeMaxRetries: 10,
		YouTubeTimeout:    20 * time.Minute,

		GraphUploadTimeout:    10 * time.Minute,
		GraphPollTimeout:      60 * time.Second,
		ContainerPollInterval: 5 * time.Second,
		ContainerMaxAttempts:  120,

		TikTokNavigationTimeout: 2 * time.Minute,
		TikTokProcessingTimeout: 5 * time.Minute,
		TikTokStepTimeout:       60 * time.Second,
		TikTokSettleDelay:       5 * time.Second,
		TikTokHeadless:          true,
		ScreenshotDir:           os.TempDir(),
	}

	if v := os.Getenv("SECRETS_PREFIX"); v != "" {
		cfg.SecretsPrefix = v
	}
	if v := os.Getenv("DOWNLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DownloadTimeout = d
		}
	}
	if v := os.Getenv("YOUTUBE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.YouTubeChunkSize = n
		}
	}
	if v := os.Getenv("YOUTUBE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.YouTubeMaxRetries = n
		}
	}
	if v := os.Getenv("YOUTUBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.YouTubeTimeout = d
		}
	}
	if v := os.Getenv("GRAPH_UPLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GraphUploadTimeout = d
		}
	}
	if v := os.Getenv("GRAPH_POLL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GraphPollTimeout = d
		}
	}
	if v := os.Getenv("CONTAINER_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ContainerPollInterval = d
		}
	}
	if v := os.Getenv("CONTAINER_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ContainerMaxAttempts = n
		}
	}
	if v := os.Getenv("TIKTOK_NAVIGATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TikTokNavigationTimeout = d
		}
	}
	if v := os.Getenv("TIKTOK_PROCESSING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TikTokProcessingTimeout = d
		}
	}
	if v := os.Getenv("TIKTOK_STEP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TikTokStepTimeout = d
		}
	}
	if v := os.Getenv("TIKTOK_SETTLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TikTokSettleDelay = d
		}
	}
	if v := os.Getenv("TIKTOK_HEADLESS"); v != "" {
		cfg.TikTokHeadless = v != "false" && v != "0"
	}
	if v := os.Getenv("SCREENSHOT_DIR"); v != "" {
		cfg.ScreenshotDir = v
	}

	if cfg.S3Endpoint == "" || cfg.S3Region == "" || cfg.S3Bucket == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return cfg, errors.New("S3_* env vars are required")
	}
	return cfg, nil
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}
