package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // empty disables the result cache
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type VisionConfig struct {
	// Engine selects the inference backend: "sidecar" (torch inference
	// service over HTTP) or "gcv" (Google Cloud Vision, detection only).
	Engine        string        `yaml:"engine"`
	SidecarURL    string        `yaml:"sidecar_url"`
	WarmupTimeout time.Duration `yaml:"warmup_timeout"`
	InferTimeout  time.Duration `yaml:"infer_timeout"`
	MaxFaces      int           `yaml:"max_faces"` // per-image cap for gcv
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	Model           string `yaml:"model"`
	MaxAnswerTokens int    `yaml:"max_answer_tokens"`
	MaxPromptTokens int    `yaml:"max_prompt_tokens"`
}

type UploadConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int64  `yaml:"max_size_mb"`
}

type WorkerConfig struct {
	Workers int `yaml:"workers"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Vision   VisionConfig   `yaml:"vision"`
	AI       AIConfig       `yaml:"ai"`
	Upload   UploadConfig   `yaml:"upload"`
	Worker   WorkerConfig   `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Vision.Engine == "sidecar" && cfg.Vision.SidecarURL == "" {
		return nil, errors.New("vision.sidecar_url is required when vision.engine is sidecar")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Vision.Engine == "" {
		cfg.Vision.Engine = "sidecar"
	}
	if cfg.Vision.WarmupTimeout <= 0 {
		cfg.Vision.WarmupTimeout = 2 * time.Minute
	}
	if cfg.Vision.InferTimeout <= 0 {
		cfg.Vision.InferTimeout = 30 * time.Second
	}
	if cfg.Vision.MaxFaces <= 0 {
		cfg.Vision.MaxFaces = 64
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.AI.MaxAnswerTokens <= 0 {
		cfg.AI.MaxAnswerTokens = 500
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 4000
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = "./storage/uploads"
	}
	if cfg.Upload.MaxSizeMB <= 0 {
		cfg.Upload.MaxSizeMB = 50
	}
	if cfg.Worker.Workers <= 0 {
		cfg.Worker.Workers = 4
	}
}
