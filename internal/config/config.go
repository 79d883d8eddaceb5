package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	InferenceBackend string `yaml:"inference_backend"`
	GeminiAPIKey     string `yaml:"gemini_api_key"`
	GeminiModel      string `yaml:"gemini_model"`
	GeminiBaseURL    string `yaml:"gemini_base_url"`
	ClaudeAPIKey     string `yaml:"claude_api_key"`
	ClaudeModel      string `yaml:"claude_model"`
	OllamaHost       string `yaml:"ollama_host"`
	OllamaModel      string `yaml:"ollama_model"`

	CameraBackend     string `yaml:"camera_backend"`
	CameraBackDevice  string `yaml:"camera_back_device"`
	CameraFrontDevice string `yaml:"camera_front_device"`
	FFmpegPath        string `yaml:"ffmpeg_path"`

	MaxUploadBytes     int64         `yaml:"max_upload_bytes"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:         ":8080",
		InferenceBackend:   "gemini",
		GeminiModel:        "gemini-2.0-flash",
		ClaudeModel:        "claude-opus-4-6",
		OllamaHost:         "http://localhost:11434",
		OllamaModel:        "llava",
		CameraBackend:      "ffmpeg",
		CameraBackDevice:   "/dev/video0",
		CameraFrontDevice:  "/dev/video1",
		FFmpegPath:         "ffmpeg",
		MaxUploadBytes:     20 << 20,
		SessionIdleTimeout: 30 * time.Minute,
		LogLevel:           "info",
		LogFormat:          "json",
	}
}

// Load reads configuration from the environment over built-in defaults.
func Load() *Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads a YAML file over the defaults, then applies the
// environment on top. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.InferenceBackend = getEnv("INFERENCE_BACKEND", c.InferenceBackend)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.GeminiBaseURL = getEnv("GEMINI_BASE_URL", c.GeminiBaseURL)
	c.ClaudeAPIKey = getEnv("CLAUDE_API_KEY", c.ClaudeAPIKey)
	c.ClaudeModel = getEnv("CLAUDE_MODEL", c.ClaudeModel)
	c.OllamaHost = getEnv("OLLAMA_HOST", c.OllamaHost)
	c.OllamaModel = getEnv("OLLAMA_MODEL", c.OllamaModel)
	c.CameraBackend = getEnv("CAMERA_BACKEND", c.CameraBackend)
	c.CameraBackDevice = getEnv("CAMERA_BACK_DEVICE", c.CameraBackDevice)
	c.CameraFrontDevice = getEnv("CAMERA_FRONT_DEVICE", c.CameraFrontDevice)
	c.FFmpegPath = getEnv("FFMPEG_PATH", c.FFmpegPath)
	c.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.SessionIdleTimeout = getEnvDuration("SESSION_IDLE_TIMEOUT", c.SessionIdleTimeout)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
}

// Validate checks that the selected backends are known and have the
// credentials they need.
func (c *Config) Validate() error {
	switch c.InferenceBackend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when INFERENCE_BACKEND=gemini")
		}
	case "claude":
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("CLAUDE_API_KEY is required when INFERENCE_BACKEND=claude")
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown INFERENCE_BACKEND %q", c.InferenceBackend)
	}

	switch c.CameraBackend {
	case "ffmpeg", "none":
	default:
		return fmt.Errorf("unknown CAMERA_BACKEND %q", c.CameraBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
