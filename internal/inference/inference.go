package inference

import (
	"context"
	"strings"
)

// AnalysisPrompt is the fixed instruction paired with every image analysis.
const AnalysisPrompt = "Analyze this skin image. Provide disease name, confidence score, description, and medical disclaimer."

// QuestionPrompt wraps a free-text question for the conversational assistant.
func QuestionPrompt(question string) string {
	return `Answer this skin health question: "` + question + `". Provide helpful information but remind users to consult healthcare professionals.`
}

// Client is the narrow contract with the remote multimodal endpoint. Every
// call is stateless: one user turn in, zero or more candidates out.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is a single user turn made of ordered content parts.
type Request struct {
	Parts []Part
}

// Part is either text or an inline image. Exactly one field is set.
type Part struct {
	Text  string
	Image *InlineImage
}

// InlineImage is raw image bytes plus their declared MIME type. Adapters
// base64-encode Data for the wire.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

func TextPart(text string) Part { return Part{Text: text} }

func ImagePart(mimeType string, data []byte) Part {
	return Part{Image: &InlineImage{MIMEType: mimeType, Data: data}}
}

// Response holds the candidate completions returned by the endpoint.
type Response struct {
	Candidates []Candidate
}

// Candidate is one completion as an ordered list of text parts.
type Candidate struct {
	Parts []string
}

// Text returns the primary text payload: the concatenated text parts of the
// first candidate, trimmed. ok is false when there is no usable text.
func (r *Response) Text() (text string, ok bool) {
	if r == nil || len(r.Candidates) == 0 {
		return "", false
	}
	text = strings.TrimSpace(strings.Join(r.Candidates[0].Parts, ""))
	return text, text != ""
}

// Prompt joins the text parts of req with blank lines, for backends that
// take a single prompt string.
func (req Request) Prompt() string {
	var texts []string
	for _, p := range req.Parts {
		if p.Image == nil && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// Images returns the inline images of req in order.
func (req Request) Images() []*InlineImage {
	var images []*InlineImage
	for _, p := range req.Parts {
		if p.Image != nil {
			images = append(images, p.Image)
		}
	}
	return images
}
