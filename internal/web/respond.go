package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/arogya/internal/analysis"
	"github.com/vbonduro/arogya/internal/camera"
	"github.com/vbonduro/arogya/internal/domain"
)

const maxJSONBody = 64 << 10

const (
	kindNotLive   = "not_live"
	kindDiscarded = "discarded"
	kindBadInput  = "invalid_request"
	kindInternal  = "internal"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}

func (s *Server) writeErrorKind(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}

// writeError maps err to a status code and a JSON error body carrying the
// user-facing message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, camera.ErrNotLive):
		s.writeErrorKind(w, http.StatusConflict, kindNotLive, "Camera is not running")
		return
	case errors.Is(err, analysis.ErrDiscarded):
		s.writeErrorKind(w, http.StatusConflict, kindDiscarded, "Analysis was cancelled")
		return
	}

	kind := domain.KindOf(err)
	if kind == "" {
		s.logger.Error("request failed", "error", err)
		s.writeErrorKind(w, http.StatusInternalServerError, kindInternal, "Internal error")
		return
	}
	s.writeErrorKind(w, statusFor(kind), string(kind), domain.UserMessage(err))
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidImage, domain.KindNoImage:
		return http.StatusBadRequest
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindDeviceUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindEmptyResponse, domain.KindTransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a small JSON body into v, writing a 400 on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		s.writeErrorKind(w, http.StatusBadRequest, kindBadInput, "Malformed JSON body")
		return false
	}
	return true
}

type imageView struct {
	MIMEType   string             `json:"mime_type"`
	Origin     domain.ImageOrigin `json:"origin"`
	CapturedAt time.Time          `json:"captured_at"`
	Size       int                `json:"size"`
}

func newImageView(img *domain.AcquiredImage) imageView {
	return imageView{
		MIMEType:   img.MIMEType,
		Origin:     img.Origin,
		CapturedAt: img.CapturedAt,
		Size:       len(img.Data),
	}
}

type cameraView struct {
	State  camera.State      `json:"state"`
	Facing domain.FacingMode `json:"facing"`
}

func newCameraView(c *camera.Controller) cameraView {
	return cameraView{State: c.State(), Facing: c.Facing()}
}

type resultView struct {
	Text     string            `json:"text"`
	At       time.Time         `json:"at"`
	Sections domain.Assessment `json:"sections"`
}

type analysisView struct {
	State   analysis.State `json:"state"`
	Result  *resultView    `json:"result,omitempty"`
	Error   *errorBody     `json:"error,omitempty"`
	ImageAt *time.Time     `json:"image_at,omitempty"`
}

func newAnalysisView(snap analysis.Snapshot) analysisView {
	v := analysisView{State: snap.State}
	if snap.Result != nil {
		v.Result = &resultView{Text: snap.Result.Text, At: snap.Result.At, Sections: snap.Result.Sections}
	}
	if snap.Err != nil {
		v.Error = &errorBody{Kind: string(snap.Err.Kind), Message: domain.UserMessage(snap.Err)}
	}
	if !snap.ImageAt.IsZero() {
		at := snap.ImageAt
		v.ImageAt = &at
	}
	return v
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
