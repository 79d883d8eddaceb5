// Package session owns the per-client state of the assistant: the held
// image, the camera, the analysis pipeline and the conversation.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/vbonduro/arogya/internal/analysis"
	"github.com/vbonduro/arogya/internal/camera"
	"github.com/vbonduro/arogya/internal/chat"
	"github.com/vbonduro/arogya/internal/domain"
	"github.com/vbonduro/arogya/internal/imagesource"
	"github.com/vbonduro/arogya/internal/inference"
)

// Session groups the four components. Analysis and chat share only the
// inference client; their state is independent.
type Session struct {
	ID        string
	CreatedAt time.Time

	Images   *imagesource.Source
	Camera   *camera.Controller
	Analysis *analysis.Pipeline
	Chat     *chat.Manager

	logger *slog.Logger
}

// New wires a session. The image source invalidates the pipeline's result
// on every acquisition and the camera feeds captured frames to the source.
func New(id string, client inference.Client, devices camera.MediaDevices, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", id)

	pipeline := analysis.NewPipeline(client, logger)
	images := imagesource.New(pipeline, logger)
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		Images:    images,
		Camera:    camera.NewController(devices, images, logger),
		Analysis:  pipeline,
		Chat:      chat.NewManager(client, logger),
		logger:    logger,
	}
}

// AnalyzeCurrent analyzes the held image, failing with NoImage when there
// is none.
func (s *Session) AnalyzeCurrent(ctx context.Context) (*domain.AnalysisResult, error) {
	return s.Analysis.Analyze(ctx, s.Images.Current())
}

// Reset re-initializes the session in place: camera closed, image and
// result dropped, transcript back to the greeting.
func (s *Session) Reset() {
	s.Camera.Stop()
	s.Images.Clear()
	s.Chat.Initialize()
	s.logger.Info("session reset")
}

// Close releases the camera and abandons any in-flight analysis.
func (s *Session) Close() {
	s.Camera.Stop()
	s.Analysis.Cancel()
	s.logger.Info("session closed")
}
