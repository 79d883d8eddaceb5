package cli

import (
	"fmt"
	"log/slog"

	"github.com/vbonduro/arogya/internal/camera"
	"github.com/vbonduro/arogya/internal/camera/ffmpeg"
	"github.com/vbonduro/arogya/internal/config"
	"github.com/vbonduro/arogya/internal/inference"
	"github.com/vbonduro/arogya/internal/inference/claude"
	"github.com/vbonduro/arogya/internal/inference/gemini"
	"github.com/vbonduro/arogya/internal/inference/ollama"
)

func newInferenceClient(cfg *config.Config, logger *slog.Logger) (inference.Client, error) {
	switch cfg.InferenceBackend {
	case "gemini":
		logger.Info("using Gemini inference backend", "model", cfg.GeminiModel)
		return gemini.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL), nil
	case "claude":
		logger.Info("using Claude inference backend", "model", cfg.ClaudeModel)
		return claude.NewClaudeClient(cfg.ClaudeAPIKey, cfg.ClaudeModel, ""), nil
	case "ollama":
		logger.Info("using Ollama inference backend", "model", cfg.OllamaModel)
		return ollama.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown inference backend %q", cfg.InferenceBackend)
	}
}

func newDevices(cfg *config.Config, logger *slog.Logger) camera.MediaDevices {
	if cfg.CameraBackend == "none" {
		return camera.NoDevices{}
	}
	return ffmpeg.NewDevices(ffmpeg.Config{
		FFmpegPath:  cfg.FFmpegPath,
		FrontDevice: cfg.CameraFrontDevice,
		BackDevice:  cfg.CameraBackDevice,
	}, logger)
}
