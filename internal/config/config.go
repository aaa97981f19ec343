package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverNone  = ""
	DriverMinio = "minio"
	DriverGCS   = "gcs"
)

type Config struct {
	Server struct {
		Port           int           `yaml:"port"`
		UploadDir      string        `yaml:"uploadDir"`
		MaxUploadBytes int64         `yaml:"maxUploadBytes"`
		ReadTimeout    time.Duration `yaml:"readTimeout"`
		WriteTimeout   time.Duration `yaml:"writeTimeout"`
	} `yaml:"server"`

	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`

	// WorkDir is the parent of the per-request work directories.
	WorkDir string `yaml:"workDir"`

	Download struct {
		MaxBytes int64         `yaml:"maxBytes"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"download"`

	Storage struct {
		Driver         string `yaml:"driver"`
		StageURLInputs bool   `yaml:"stageURLInputs"`

		Minio struct {
			Endpoint   string `yaml:"endpoint"`
			AccessKey  string `yaml:"accessKey"`
			SecretKey  string `yaml:"secretKey"`
			BucketName string `yaml:"bucketName"`
			Region     string `yaml:"region"`
			UseSSL     bool   `yaml:"useSSL"`
		} `yaml:"minio"`

		GCS struct {
			Bucket          string `yaml:"bucket"`
			CredentialsFile string `yaml:"credentialsFile"`
		} `yaml:"gcs"`
	} `yaml:"storage"`

	OpenAI struct {
		APIKey      string        `yaml:"apiKey"`
		Model       string        `yaml:"model"`
		BaseURL     string        `yaml:"baseURL"`
		Temperature float32       `yaml:"temperature"`
		MaxTokens   int           `yaml:"maxTokens"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"openai"`

	Video struct {
		FramesPerSecond float64 `yaml:"framesPerSecond"`
		BatchSize       int     `yaml:"batchSize"`
		FFmpegPath      string  `yaml:"ffmpegPath"`
		FFprobePath     string  `yaml:"ffprobePath"`
	} `yaml:"video"`

	OCR struct {
		Language string `yaml:"language"`
	} `yaml:"ocr"`

	Analysis struct {
		MaxChars       int `yaml:"maxChars"`
		ChatContextMax int `yaml:"chatContextMax"`
	} `yaml:"analysis"`

	RateLimit struct {
		Enabled    bool `yaml:"enabled"`
		Capacity   int  `yaml:"capacity"`
		RefillRate int  `yaml:"refillRate"`
	} `yaml:"rateLimit"`
}

// Default returns a config with every knob at its default value.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 3000
	cfg.Server.UploadDir = "uploads"
	cfg.Server.MaxUploadBytes = 500 << 20
	cfg.Server.ReadTimeout = 15 * time.Minute
	cfg.Server.WriteTimeout = 15 * time.Minute
	cfg.Log.Mode = "dev"
	cfg.WorkDir = os.TempDir()
	cfg.Download.MaxBytes = 500 << 20
	cfg.Download.Timeout = 60 * time.Second
	cfg.Storage.StageURLInputs = true
	cfg.Storage.Minio.Region = "us-east-1"
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.OpenAI.Temperature = 0.7
	cfg.OpenAI.MaxTokens = 2000
	cfg.OpenAI.Timeout = 2 * time.Minute
	cfg.Video.FramesPerSecond = 0.5
	cfg.Video.BatchSize = 5
	cfg.Video.FFmpegPath = "ffmpeg"
	cfg.Video.FFprobePath = "ffprobe"
	cfg.OCR.Language = "eng"
	cfg.Analysis.MaxChars = 15000
	cfg.Analysis.ChatContextMax = 10000
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Capacity = 30
	cfg.RateLimit.RefillRate = 1
	return &cfg
}

// Load reads config.yaml on top of the defaults, then applies env
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	str("LOG_MODE", &c.Log.Mode)
	str("WORK_DIR", &c.WorkDir)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_MODEL", &c.OpenAI.Model)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("MINIO_ENDPOINT", &c.Storage.Minio.Endpoint)
	str("MINIO_ACCESS_KEY", &c.Storage.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &c.Storage.Minio.SecretKey)
	str("MINIO_BUCKET", &c.Storage.Minio.BucketName)
	str("GCS_BUCKET", &c.Storage.GCS.Bucket)
	str("GCS_CREDENTIALS_FILE", &c.Storage.GCS.CredentialsFile)

	// a bare MINIO_ENDPOINT is enough to pick the driver
	if c.Storage.Driver == DriverNone && c.Storage.Minio.Endpoint != "" {
		c.Storage.Driver = DriverMinio
	}
}

// Validate checks ranges and the storage driver selection.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Download.MaxBytes <= 0 {
		errs = append(errs, errors.New("download.maxBytes must be positive"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download.timeout must be positive"))
	}
	if c.Video.FramesPerSecond <= 0 {
		errs = append(errs, errors.New("video.framesPerSecond must be positive"))
	}
	if c.Video.BatchSize <= 0 {
		errs = append(errs, errors.New("video.batchSize must be positive"))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("openai.temperature out of range [0, 2]: %v", c.OpenAI.Temperature))
	}
	if c.Analysis.MaxChars <= 0 {
		errs = append(errs, errors.New("analysis.maxChars must be positive"))
	}
	switch c.Storage.Driver {
	case DriverNone:
	case DriverMinio:
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.BucketName == "" {
			errs = append(errs, errors.New("storage.minio requires endpoint and bucketName"))
		}
	case DriverGCS:
		if c.Storage.GCS.Bucket == "" {
			errs = append(errs, errors.New("storage.gcs requires bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q (allowed: minio, gcs)", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// StorageConfigured reports whether an object store driver is selected.
func (c *Config) StorageConfigured() bool { return c.Storage.Driver != DriverNone }

// AIConfigured reports whether a model API key is present.
func (c *Config) AIConfigured() bool { return c.OpenAI.APIKey != "" }
