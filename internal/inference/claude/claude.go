package claude

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/arogya/internal/inference"
)

// defaultMaxTokens leaves room for a full assessment with disclaimer.
const defaultMaxTokens = 1024

type ClaudeClient struct {
	client *anthropic.Client
	model  string
}

// NewClaudeClient builds a client for the Anthropic Messages API. An empty
// baseURL keeps the library default.
func NewClaudeClient(apiKey, model, baseURL string) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeClient{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

// buildMessages maps the request parts onto a single user message.
func buildMessages(req inference.Request) []anthropic.Message {
	content := make([]anthropic.MessageContent, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Image != nil {
			content = append(content, anthropic.NewImageMessageContent(
				anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(p.Image.MIMEType),
					base64.StdEncoding.EncodeToString(p.Image.Data),
				),
			))
			continue
		}
		content = append(content, anthropic.NewTextMessageContent(p.Text))
	}
	return []anthropic.Message{{Role: anthropic.RoleUser, Content: content}}
}

func (c *ClaudeClient) Generate(ctx context.Context, req inference.Request) (*inference.Response, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		Messages:  buildMessages(req),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	// The Messages API returns a single completion; its text blocks become
	// the parts of one candidate.
	var parts []string
	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText {
			parts = append(parts, blk.GetText())
		}
	}
	if len(parts) == 0 {
		return &inference.Response{}, nil
	}
	return &inference.Response{Candidates: []inference.Candidate{{Parts: parts}}}, nil
}

// normaliseMIME maps MIME types to the values the Anthropic API accepts:
// jpeg, png, gif and webp. Anything else is declared as jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
