// Package imagesource turns file bytes and camera frames into one encoded
// still-image representation and owns the most recently acquired image.
package imagesource

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	// Registered decoders define the accepted upload formats.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/vbonduro/arogya/internal/domain"
)

// FrameQuality matches the default quality of a browser canvas JPEG export.
const FrameQuality = 92

// Invalidator is told when a new image supersedes the previous one, so any
// result derived from the old image can be discarded. next is nil when the
// image is cleared. Supersede runs with the Source locked and must not call
// back into it.
type Invalidator interface {
	Supersede(next *domain.AcquiredImage)
}

type Source struct {
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.RWMutex
	current *domain.AcquiredImage
}

// New returns a Source with no image. invalidator may be nil.
func New(invalidator Invalidator, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		invalidator: invalidator,
		logger:      logger.With("component", "image-source"),
		now:         time.Now,
	}
}

// LoadFromFile accepts raw file bytes in any registered image format. The
// bytes are kept as-is; only the header is decoded to validate the format.
func (s *Source) LoadFromFile(data []byte) (*domain.AcquiredImage, error) {
	if len(data) == 0 {
		return nil, domain.NewError(domain.KindInvalidImage, errors.New("empty file"))
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidImage, fmt.Errorf("decode image header: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, domain.NewError(domain.KindInvalidImage, fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}

	img := &domain.AcquiredImage{
		MIMEType:   "image/" + format,
		Data:       bytes.Clone(data),
		CapturedAt: s.now(),
		Origin:     domain.OriginFile,
	}
	s.replace(img)
	s.logger.Info("image loaded from file", "mime_type", img.MIMEType, "bytes", len(img.Data), "width", cfg.Width, "height", cfg.Height)
	return img, nil
}

// LoadFromFrame encodes a sampled video frame as JPEG at its native size.
func (s *Source) LoadFromFrame(frame image.Image) (*domain.AcquiredImage, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, domain.NewError(domain.KindInvalidImage, errors.New("empty frame"))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: FrameQuality}); err != nil {
		return nil, domain.NewError(domain.KindInvalidImage, fmt.Errorf("encode frame: %w", err))
	}

	img := &domain.AcquiredImage{
		MIMEType:   "image/jpeg",
		Data:       buf.Bytes(),
		CapturedAt: s.now(),
		Origin:     domain.OriginCamera,
	}
	s.replace(img)
	b := frame.Bounds()
	s.logger.Info("image captured from camera", "bytes", len(img.Data), "width", b.Dx(), "height", b.Dy())
	return img, nil
}

// Current returns the held image, or nil if none has been acquired.
func (s *Source) Current() *domain.AcquiredImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Clear drops the held image and any result derived from it.
func (s *Source) Clear() {
	s.replace(nil)
}

// replace publishes img and tells the invalidator under one lock, so a
// reader of Current sees either the old image before invalidation or the
// new one after it.
func (s *Source) replace(img *domain.AcquiredImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = img
	if s.invalidator != nil {
		s.invalidator.Supersede(img)
	}
}
