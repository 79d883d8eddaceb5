package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/arogya/internal/session"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "arogya_session"

type Server struct {
	sessions  *session.Registry
	maxUpload int64
	mux       *http.ServeMux
	logger    *slog.Logger
}

func NewServer(sessions *session.Registry, maxUpload int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		sessions:  sessions,
		maxUpload: maxUpload,
		mux:       http.NewServeMux(),
		logger:    logger.With("component", "web"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /session", s.handleResetSession)
	s.mux.HandleFunc("DELETE /session", s.handleEndSession)

	s.mux.HandleFunc("POST /image", s.handleUploadImage)
	s.mux.HandleFunc("GET /image", s.handleGetImage)

	s.mux.HandleFunc("POST /camera/start", s.handleCameraStart)
	s.mux.HandleFunc("POST /camera/switch", s.handleCameraSwitch)
	s.mux.HandleFunc("POST /camera/capture", s.handleCameraCapture)
	s.mux.HandleFunc("POST /camera/stop", s.handleCameraStop)
	s.mux.HandleFunc("GET /camera/state", s.handleCameraState)
	s.mux.HandleFunc("GET /camera/preview", s.handleCameraPreview)

	s.mux.HandleFunc("POST /analysis", s.handleAnalyze)
	s.mux.HandleFunc("DELETE /analysis", s.handleCancelAnalysis)
	s.mux.HandleFunc("GET /analysis", s.handleGetAnalysis)

	s.mux.HandleFunc("GET /chat", s.handleGetChat)
	s.mux.HandleFunc("PUT /chat/draft", s.handleSetDraft)
	s.mux.HandleFunc("POST /chat/messages", s.handleSendMessage)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"img-src 'self' data: blob:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code and
// body size. Only the first WriteHeader counts, as in net/http.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Flush forwards to the underlying writer when it supports flushing.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// requestLogger logs one line per request; server errors are logged at
// error level.
func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// HTTPServer returns an *http.Server for addr with the timeouts used in
// production. Analysis requests can take a while, hence the long write
// timeout.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// session returns the caller's session, starting one and setting the cookie
// when the request carries no known id.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess
		}
	}
	sess := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Reset()
	s.writeJSON(w, http.StatusOK, map[string]string{"session_id": sess.ID})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.sessions.End(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
