// Package analysis runs remote image assessments and holds the latest
// outcome for display.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/arogya/internal/domain"
	"github.com/vbonduro/arogya/internal/inference"
)

type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ErrDiscarded is returned by Analyze when its request was cancelled,
// superseded by a newer request, or invalidated by a new image. The pipeline
// is Idle (or owned by the newer request) when it is returned.
var ErrDiscarded = errors.New("analysis request discarded")

// Snapshot is a consistent view of the pipeline. At most one of Result and
// Err is set.
type Snapshot struct {
	State   State
	Result  *domain.AnalysisResult
	Err     *domain.Error
	ImageAt time.Time
}

type Pipeline struct {
	client inference.Client
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	state   State
	result  *domain.AnalysisResult
	err     *domain.Error
	imageAt time.Time
	gen     uint64
	cancel  context.CancelFunc

	// expected is the image named by the last Supersede; once tracked,
	// Analyze refuses any other image.
	expected *domain.AcquiredImage
	tracked  bool
}

func NewPipeline(client inference.Client, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		client: client,
		logger: logger.With("component", "analysis"),
		now:    time.Now,
		state:  StateIdle,
	}
}

// Analyze submits img with the fixed analysis instruction and blocks until
// the endpoint answers or ctx is done. Failures are returned as
// *domain.Error and also recorded in the snapshot. A request still in
// flight is superseded: it is cancelled and its outcome discarded. An image
// other than the one named by the last Supersede is refused with
// ErrDiscarded.
func (p *Pipeline) Analyze(ctx context.Context, img *domain.AcquiredImage) (*domain.AnalysisResult, error) {
	p.mu.Lock()
	if img != nil && p.tracked && img != p.expected {
		p.mu.Unlock()
		p.logger.Info("analysis discarded for a superseded image")
		return nil, ErrDiscarded
	}
	p.discardLocked()
	gen := p.gen

	if img == nil || len(img.Data) == 0 {
		p.failLocked(domain.NewError(domain.KindNoImage, nil))
		p.imageAt = time.Time{}
		err := p.err
		p.mu.Unlock()
		return nil, err
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.cancel = cancel
	p.state = StateRequesting
	p.result, p.err = nil, nil
	p.imageAt = img.CapturedAt
	p.mu.Unlock()

	p.logger.Info("analysis started", "mime_type", img.MIMEType, "bytes", len(img.Data))
	start := p.now()
	resp, genErr := p.client.Generate(reqCtx, inference.Request{Parts: []inference.Part{
		inference.TextPart(inference.AnalysisPrompt),
		inference.ImagePart(img.MIMEType, img.Data),
	}})

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		p.logger.Info("analysis discarded")
		return nil, ErrDiscarded
	}
	p.cancel = nil

	if genErr != nil && reqCtx.Err() != nil {
		p.state = StateIdle
		p.logger.Info("analysis cancelled")
		return nil, fmt.Errorf("%w: %w", ErrDiscarded, reqCtx.Err())
	}
	if genErr != nil {
		p.failLocked(domain.NewError(domain.KindTransportFailure, genErr))
		p.logger.Warn("analysis failed", "error", genErr)
		return nil, p.err
	}

	text, ok := resp.Text()
	if !ok {
		p.failLocked(domain.NewError(domain.KindEmptyResponse, nil))
		p.logger.Warn("analysis returned no text", "candidates", candidateCount(resp))
		return nil, p.err
	}

	p.result = &domain.AnalysisResult{
		Text:     text,
		At:       p.now(),
		Sections: ParseAssessment(text),
	}
	p.state = StateSucceeded
	p.logger.Info("analysis complete", "chars", len(text), "duration_ms", p.now().Sub(start).Milliseconds())
	return p.result, nil
}

// Cancel abandons an in-flight request and returns the pipeline to Idle.
// It does nothing unless a request is in flight.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRequesting {
		return
	}
	p.discardLocked()
	p.state = StateIdle
}

// Invalidate clears any result or error and discards an in-flight request.
// It is called when a new image supersedes the one being analyzed.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidateLocked()
}

func (p *Pipeline) invalidateLocked() {
	p.discardLocked()
	p.state = StateIdle
	p.result, p.err = nil, nil
	p.imageAt = time.Time{}
}

// Supersede invalidates like Invalidate and records next as the only image
// later calls to Analyze may accept. A nil next means no image is held.
func (p *Pipeline) Supersede(next *domain.AcquiredImage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidateLocked()
	p.expected, p.tracked = next, true
}

func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{State: p.state, Result: p.result, Err: p.err, ImageAt: p.imageAt}
}

// discardLocked cancels any in-flight request and advances the generation so
// its completion is ignored.
func (p *Pipeline) discardLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
}

func candidateCount(resp *inference.Response) int {
	if resp == nil {
		return 0
	}
	return len(resp.Candidates)
}

func (p *Pipeline) failLocked(err *domain.Error) {
	p.state = StateFailed
	p.result = nil
	p.err = err
}
