package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vbonduro/arogya/internal/inference"
)

type OllamaClient struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaClient(host, model string) *OllamaClient {
	return &OllamaClient{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

func (c *OllamaClient) Generate(ctx context.Context, req inference.Request) (*inference.Response, error) {
	// The generate endpoint takes one prompt string and a list of images.
	images := make([]string, 0)
	for _, img := range req.Images() {
		images = append(images, base64.StdEncoding.EncodeToString(img.Data))
	}

	reqBody := map[string]interface{}{
		"model":  c.model,
		"prompt": req.Prompt(),
		"stream": false,
	}
	if len(images) > 0 {
		reqBody["images"] = images
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if respBody.Response == "" {
		return &inference.Response{}, nil
	}
	return &inference.Response{Candidates: []inference.Candidate{{Parts: []string{respBody.Response}}}}, nil
}
