// Package ffmpeg implements camera.MediaDevices for V4L2 devices by running
// ffmpeg as an MJPEG pipe and keeping the most recent frame.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/vbonduro/arogya/internal/camera"
	"github.com/vbonduro/arogya/internal/domain"
)

// firstFrameTimeout bounds how long Open waits for the device to deliver a frame.
const firstFrameTimeout = 10 * time.Second

// maxFrameSize bounds a single MJPEG frame held by the scanner.
const maxFrameSize = 16 << 20

var (
	soi = []byte{0xFF, 0xD8}
	eoi = []byte{0xFF, 0xD9}
)

type Config struct {
	// FFmpegPath is the ffmpeg binary name or path.
	FFmpegPath  string
	FrontDevice string
	BackDevice  string
}

type Devices struct {
	cfg    Config
	logger *slog.Logger
}

func NewDevices(cfg Config, logger *slog.Logger) *Devices {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Devices{cfg: cfg, logger: logger.With("component", "ffmpeg-camera")}
}

func (d *Devices) devicePath(facing domain.FacingMode) string {
	if facing == domain.FacingFront {
		return d.cfg.FrontDevice
	}
	return d.cfg.BackDevice
}

// Open checks that the device node is readable, starts ffmpeg on it and
// waits for the first frame.
func (d *Devices) Open(ctx context.Context, facing domain.FacingMode) (camera.Stream, error) {
	path := d.devicePath(facing)
	if path == "" {
		return nil, domain.NewError(domain.KindDeviceUnavailable, fmt.Errorf("no device configured for %s camera", facing))
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, domain.NewError(domain.KindPermissionDenied, err)
		}
		return nil, domain.NewError(domain.KindDeviceUnavailable, err)
	}
	if err := f.Close(); err != nil {
		d.logger.Warn("failed to close device probe", "device", path, "error", err)
	}

	bin, err := exec.LookPath(d.cfg.FFmpegPath)
	if err != nil {
		return nil, domain.NewError(domain.KindDeviceUnavailable, fmt.Errorf("find ffmpeg: %w", err))
	}

	cmd := exec.Command(bin,
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2", "-i", path,
		"-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "3", "-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, domain.NewError(domain.KindDeviceUnavailable, fmt.Errorf("ffmpeg stdout: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return nil, domain.NewError(domain.KindDeviceUnavailable, fmt.Errorf("start ffmpeg: %w", err))
	}

	s := newStream(cmd, d.logger.With("device", path, "facing", facing))
	go s.read(stdout)

	timer := time.NewTimer(firstFrameTimeout)
	defer timer.Stop()
	select {
	case <-s.ready:
		d.logger.Info("camera stream opened", "device", path, "facing", facing, "pid", cmd.Process.Pid)
		return s, nil
	case <-s.done:
		_ = s.Stop()
		return nil, domain.NewError(domain.KindDeviceUnavailable, fmt.Errorf("ffmpeg exited before the first frame: %w", s.readErr()))
	case <-timer.C:
		_ = s.Stop()
		return nil, domain.NewError(domain.KindDeviceUnavailable, errors.New("timed out waiting for the first frame"))
	case <-ctx.Done():
		_ = s.Stop()
		return nil, domain.NewError(domain.KindDeviceUnavailable, ctx.Err())
	}
}

type stream struct {
	cmd    *exec.Cmd
	logger *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	stopOnce  sync.Once
	stopErr   error

	mu     sync.RWMutex
	latest []byte
	err    error
}

func newStream(cmd *exec.Cmd, logger *slog.Logger) *stream {
	return &stream{
		cmd:    cmd,
		logger: logger,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// read splits the MJPEG pipe into frames until it closes.
func (s *stream) read(r io.Reader) {
	defer close(s.done)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), maxFrameSize)
	scanner.Split(splitJPEG)
	for scanner.Scan() {
		frame := bytes.Clone(scanner.Bytes())
		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()
		s.readyOnce.Do(func() { close(s.ready) })
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stream) readErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Frame decodes the most recent complete frame.
func (s *stream) Frame() (image.Image, error) {
	s.mu.RLock()
	data, err := s.latest, s.err
	s.mu.RUnlock()

	if err != nil {
		return nil, fmt.Errorf("stream ended: %w", err)
	}
	if data == nil {
		return nil, errors.New("no frame received yet")
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// Stop kills ffmpeg and waits for it, which releases the device.
func (s *stream) Stop() error {
	s.stopOnce.Do(func() {
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.stopErr = fmt.Errorf("kill ffmpeg: %w", err)
		}
		// The pipe closes once the process is gone; Wait must follow the last read.
		<-s.done
		// Wait reports the kill signal as an error; that is the expected outcome.
		_ = s.cmd.Wait()
		s.logger.Debug("ffmpeg stopped")
	})
	return s.stopErr
}

// splitJPEG is a bufio.SplitFunc yielding complete JPEG images delimited by
// SOI and EOI markers. Bytes before the first SOI are discarded.
func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, soi)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF that may begin the next SOI.
		if n := len(data); n > 0 && data[n-1] == 0xFF {
			return n - 1, nil, nil
		}
		return len(data), nil, nil
	}

	end := bytes.Index(data[start+len(soi):], eoi)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	stop := start + len(soi) + end + len(eoi)
	return stop, data[start:stop], nil
}
