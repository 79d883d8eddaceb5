package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/vbonduro/arogya/internal/domain"
)

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorKind(w, http.StatusRequestEntityTooLarge, kindBadInput, "Image is too large")
			return
		}
		s.writeErrorKind(w, http.StatusBadRequest, kindBadInput, "Failed to parse form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeErrorKind(w, http.StatusBadRequest, kindBadInput, "Image file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "session_id", sess.ID, "error", err)
		s.writeErrorKind(w, http.StatusInternalServerError, kindInternal, "Failed to read file")
		return
	}

	img, err := sess.Images.LoadFromFile(data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newImageView(img))
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	img := sess.Images.Current()
	if img == nil {
		s.writeErrorKind(w, http.StatusNotFound, string(domain.KindNoImage), domain.UserMessage(domain.ErrNoImage))
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img.Data); err != nil {
		s.logger.Error("write image failed", "session_id", sess.ID, "error", err)
	}
}
