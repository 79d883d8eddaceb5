package domain

import "time"

// ImageOrigin records which acquisition path produced an image.
type ImageOrigin string

const (
	OriginFile   ImageOrigin = "file"
	OriginCamera ImageOrigin = "camera"
)

// AcquiredImage is an encoded still image. It is never mutated after
// creation; a later acquisition supersedes it with a new value.
type AcquiredImage struct {
	MIMEType   string
	Data       []byte
	CapturedAt time.Time
	Origin     ImageOrigin
}

// FacingMode selects which physical camera a live stream is sourced from.
type FacingMode string

const (
	FacingFront FacingMode = "front"
	FacingBack  FacingMode = "back"
)

// Opposite returns the other facing mode.
func (f FacingMode) Opposite() FacingMode {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// ParseFacingMode accepts the domain names plus the browser facingMode
// values "user" and "environment". An empty string selects the back camera.
func ParseFacingMode(s string) (FacingMode, bool) {
	switch s {
	case "", "back", "environment":
		return FacingBack, true
	case "front", "user":
		return FacingFront, true
	default:
		return "", false
	}
}

// Assessment is a best-effort split of a free-text analysis into the
// sections the analysis instruction asks for. Any field may be empty.
type Assessment struct {
	Condition   string `json:"condition,omitempty"`
	Confidence  string `json:"confidence,omitempty"`
	Description string `json:"description,omitempty"`
	Disclaimer  string `json:"disclaimer,omitempty"`
}

// AnalysisResult is the assistant's assessment of one image.
type AnalysisResult struct {
	Text     string
	At       time.Time
	Sections Assessment
}

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one message in a conversation transcript.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}
