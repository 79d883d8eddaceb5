package web

import (
	"net/http"
)

// handleAnalyze runs the analysis on the request context, so a client that
// disconnects abandons the request and leaves the pipeline idle.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if _, err := sess.AnalyzeCurrent(r.Context()); err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newAnalysisView(sess.Analysis.Snapshot()))
}

func (s *Server) handleCancelAnalysis(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Analysis.Cancel()
	s.writeJSON(w, http.StatusOK, newAnalysisView(sess.Analysis.Snapshot()))
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	s.writeJSON(w, http.StatusOK, newAnalysisView(sess.Analysis.Snapshot()))
}
