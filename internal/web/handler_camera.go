package web

import (
	"net/http"
	"strconv"

	"github.com/vbonduro/arogya/internal/domain"
)

func (s *Server) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	facing, ok := domain.ParseFacingMode(r.URL.Query().Get("facing"))
	if !ok {
		s.writeErrorKind(w, http.StatusBadRequest, kindBadInput, "facing must be back or front")
		return
	}
	sess := s.session(w, r)
	if err := sess.Camera.Start(r.Context(), facing); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newCameraView(sess.Camera))
}

func (s *Server) handleCameraSwitch(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := sess.Camera.Switch(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newCameraView(sess.Camera))
}

func (s *Server) handleCameraCapture(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	img, err := sess.Camera.Capture()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newImageView(img))
}

func (s *Server) handleCameraStop(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Camera.Stop()
	s.writeJSON(w, http.StatusOK, newCameraView(sess.Camera))
}

func (s *Server) handleCameraState(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	s.writeJSON(w, http.StatusOK, newCameraView(sess.Camera))
}

func (s *Server) handleCameraPreview(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	frame, err := sess.Camera.Preview()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(frame); err != nil {
		s.logger.Error("write preview failed", "session_id", sess.ID, "error", err)
	}
}
