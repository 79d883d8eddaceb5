package web

import (
	"net/http"

	"github.com/vbonduro/arogya/internal/chat"
	"github.com/vbonduro/arogya/internal/domain"
)

type chatView struct {
	Transcript  []domain.Turn `json:"transcript"`
	Pending     bool          `json:"pending"`
	Draft       string        `json:"draft"`
	Suggestions []string      `json:"suggestions"`
}

func newChatView(m *chat.Manager) chatView {
	return chatView{
		Transcript:  m.Transcript(),
		Pending:     m.Pending(),
		Draft:       m.Draft(),
		Suggestions: chat.Suggestions,
	}
}

type messageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	s.writeJSON(w, http.StatusOK, newChatView(sess.Chat))
}

func (s *Server) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	sess := s.session(w, r)
	sess.Chat.SetDraft(req.Text)
	s.writeJSON(w, http.StatusOK, newChatView(sess.Chat))
}

// handleSendMessage answers with the updated conversation. Blank input or
// a send while a reply is pending is ignored and answers 204.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	sess := s.session(w, r)
	reply, ok := sess.Chat.Send(r.Context(), req.Text)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"reply": reply,
		"chat":  newChatView(sess.Chat),
	})
}
