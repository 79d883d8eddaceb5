package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/vbonduro/arogya/internal/inference"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// maxErrorBody caps how much of a non-2xx body is echoed into the error.
const maxErrorBody = 4 << 10

// request types mirror the generateContent REST structure.
type request struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type GeminiClient struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

func NewGeminiClient(apiKey, model, baseURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{},
		baseURL: baseURL,
	}
}

func buildContents(req inference.Request) []content {
	parts := make([]part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Image != nil {
			parts = append(parts, part{InlineData: &inlineData{
				MimeType: p.Image.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Image.Data),
			}})
			continue
		}
		parts = append(parts, part{Text: p.Text})
	}
	return []content{{Role: "user", Parts: parts}}
}

func (c *GeminiClient) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
}

func (c *GeminiClient) Generate(ctx context.Context, req inference.Request) (*inference.Response, error) {
	payload, err := json.Marshal(request{Contents: buildContents(req)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close gemini response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, bytes.TrimSpace(errBody))
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	out := &inference.Response{Candidates: make([]inference.Candidate, 0, len(respBody.Candidates))}
	for _, cand := range respBody.Candidates {
		texts := make([]string, 0, len(cand.Content.Parts))
		for _, p := range cand.Content.Parts {
			texts = append(texts, p.Text)
		}
		out.Candidates = append(out.Candidates, inference.Candidate{Parts: texts})
	}
	return out, nil
}
