// Package camera manages the lifecycle of a single live capture device.
//
// A Controller moves between Closed, Starting and Live. It holds at most one
// device stream at a time: every transition out of Live or Starting releases
// the held stream before another one is requested.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/vbonduro/arogya/internal/domain"
)

type State string

const (
	StateClosed   State = "closed"
	StateStarting State = "starting"
	StateLive     State = "live"
)

// ErrNotLive is returned by operations that require a live stream.
var ErrNotLive = errors.New("camera is not live")

// Stream is an open device handle producing video frames.
type Stream interface {
	// Frame samples the current video frame at the stream's native resolution.
	Frame() (image.Image, error)
	// Stop releases the device. It must be safe to call more than once.
	Stop() error
}

// MediaDevices opens live video streams by facing-mode preference.
type MediaDevices interface {
	Open(ctx context.Context, facing domain.FacingMode) (Stream, error)
}

// FrameSink receives captured frames; imagesource.Source implements it.
type FrameSink interface {
	LoadFromFrame(frame image.Image) (*domain.AcquiredImage, error)
}

// NoDevices is a MediaDevices for hosts without camera support.
type NoDevices struct{}

func (NoDevices) Open(context.Context, domain.FacingMode) (Stream, error) {
	return nil, domain.NewError(domain.KindDeviceUnavailable, errors.New("camera support disabled"))
}

type Controller struct {
	devices MediaDevices
	sink    FrameSink
	logger  *slog.Logger

	// ops serializes lifecycle transitions, including the blocking Open.
	ops sync.Mutex

	mu     sync.RWMutex
	state  State
	facing domain.FacingMode
	stream Stream
}

func NewController(devices MediaDevices, sink FrameSink, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		devices: devices,
		sink:    sink,
		logger:  logger.With("component", "camera"),
		state:   StateClosed,
		facing:  domain.FacingBack,
	}
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Facing returns the most recently requested facing mode.
func (c *Controller) Facing() domain.FacingMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.facing
}

// Start opens a live stream for facing. A stream that is already held is
// released first. On failure the controller is Closed and the error is a
// *domain.Error of kind PermissionDenied or DeviceUnavailable.
func (c *Controller) Start(ctx context.Context, facing domain.FacingMode) error {
	c.ops.Lock()
	defer c.ops.Unlock()
	c.release()
	return c.start(ctx, facing)
}

// Switch restarts the live stream with the opposite facing mode.
func (c *Controller) Switch(ctx context.Context) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	if c.State() != StateLive {
		return ErrNotLive
	}
	next := c.Facing().Opposite()
	c.release()
	return c.start(ctx, next)
}

// Capture samples the current frame, hands it to the sink and closes the
// camera. The camera is closed even when the frame cannot be read.
func (c *Controller) Capture() (*domain.AcquiredImage, error) {
	c.ops.Lock()
	defer c.ops.Unlock()

	c.mu.RLock()
	state, stream := c.state, c.stream
	c.mu.RUnlock()
	if state != StateLive {
		return nil, ErrNotLive
	}

	frame, err := stream.Frame()
	c.release()
	if err != nil {
		return nil, domain.NewError(domain.KindDeviceUnavailable, fmt.Errorf("read frame: %w", err))
	}
	return c.sink.LoadFromFrame(frame)
}

// Stop releases the device. Stopping a closed camera is a no-op.
func (c *Controller) Stop() {
	c.ops.Lock()
	defer c.ops.Unlock()
	c.release()
}

// Preview returns the current live frame encoded as JPEG for display.
func (c *Controller) Preview() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateLive {
		return nil, ErrNotLive
	}
	frame, err := c.stream.Frame()
	if err != nil {
		return nil, domain.NewError(domain.KindDeviceUnavailable, fmt.Errorf("read frame: %w", err))
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// start must be called with ops held and no stream held.
func (c *Controller) start(ctx context.Context, facing domain.FacingMode) error {
	c.mu.Lock()
	c.state = StateStarting
	c.facing = facing
	c.mu.Unlock()

	c.logger.Info("camera starting", "facing", facing)
	stream, err := c.devices.Open(ctx, facing)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		c.logger.Warn("camera start failed", "facing", facing, "error", err)
		return classify(err)
	}

	c.mu.Lock()
	c.stream = stream
	c.state = StateLive
	c.mu.Unlock()
	c.logger.Info("camera live", "facing", facing)
	return nil
}

// release must be called with ops held.
func (c *Controller) release() {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.state = StateClosed
	c.mu.Unlock()

	if stream == nil {
		return
	}
	if err := stream.Stop(); err != nil {
		c.logger.Error("failed to stop camera stream", "error", err)
	}
	c.logger.Info("camera closed")
}

func classify(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, fs.ErrPermission) {
		return domain.NewError(domain.KindPermissionDenied, err)
	}
	return domain.NewError(domain.KindDeviceUnavailable, err)
}
