// Package chat keeps a local conversation transcript with the skin-health
// assistant. Each question is sent to the endpoint on its own; the
// transcript's multi-turn shape exists only on this side.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/vbonduro/arogya/internal/domain"
	"github.com/vbonduro/arogya/internal/inference"
)

const (
	Greeting         = "Hello! I am your AI skin health assistant. Ask me about skin conditions!"
	FallbackNoAnswer = "Sorry, I could not process your question."
	FallbackFailure  = "I am experiencing technical difficulties."
)

// Suggestions are sample questions offered to start a conversation.
var Suggestions = []string{
	"What causes acne?",
	"How to care for dry skin?",
}

type Manager struct {
	client inference.Client
	logger *slog.Logger

	mu         sync.Mutex
	transcript []domain.Turn
	draft      string
	pending    bool
	// epoch advances on Initialize so replies to an earlier transcript are dropped.
	epoch uint64
}

// NewManager returns an initialized Manager.
func NewManager(client inference.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		client: client,
		logger: logger.With("component", "chat"),
	}
	m.Initialize()
	return m
}

// Initialize resets the transcript to the greeting turn.
func (m *Manager) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcript = []domain.Turn{{Speaker: domain.SpeakerAssistant, Text: Greeting}}
	m.draft = ""
	m.pending = false
	m.epoch++
}

// Send appends the user's question, asks the endpoint and appends the
// assistant's reply, or a fallback turn when there is no usable reply. It
// returns the appended assistant turn and true, or false when the call was
// a no-op because text is blank or a reply is already pending.
func (m *Manager) Send(ctx context.Context, text string) (domain.Turn, bool) {
	if strings.TrimSpace(text) == "" {
		return domain.Turn{}, false
	}

	m.mu.Lock()
	if m.pending {
		m.mu.Unlock()
		m.logger.Debug("send ignored while a reply is pending")
		return domain.Turn{}, false
	}
	m.transcript = append(m.transcript, domain.Turn{Speaker: domain.SpeakerUser, Text: text})
	m.draft = ""
	m.pending = true
	epoch := m.epoch
	m.mu.Unlock()

	reply := m.ask(ctx, text)

	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		m.logger.Debug("reply dropped after transcript reset")
		return reply, true
	}
	m.transcript = append(m.transcript, reply)
	m.pending = false
	return reply, true
}

// SendDraft sends the current draft.
func (m *Manager) SendDraft(ctx context.Context) (domain.Turn, bool) {
	return m.Send(ctx, m.Draft())
}

func (m *Manager) ask(ctx context.Context, question string) domain.Turn {
	resp, err := m.client.Generate(ctx, inference.Request{Parts: []inference.Part{
		inference.TextPart(inference.QuestionPrompt(question)),
	}})
	if err != nil {
		m.logger.Warn("chat request failed", "error", err)
		return domain.Turn{Speaker: domain.SpeakerAssistant, Text: FallbackFailure}
	}
	text, ok := resp.Text()
	if !ok {
		m.logger.Warn("chat reply had no text")
		return domain.Turn{Speaker: domain.SpeakerAssistant, Text: FallbackNoAnswer}
	}
	return domain.Turn{Speaker: domain.SpeakerAssistant, Text: text}
}

// SetDraft replaces the pending-input buffer.
func (m *Manager) SetDraft(text string) {
	m.mu.Lock()
	m.draft = text
	m.mu.Unlock()
}

func (m *Manager) Draft() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

// Pending reports whether a reply is awaited.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Transcript returns a copy of the turns in display order.
func (m *Manager) Transcript() []domain.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Turn, len(m.transcript))
	copy(out, m.transcript)
	return out
}
