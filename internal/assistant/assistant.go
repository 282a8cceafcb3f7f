// internal/assistant/assistant.go
// Gemini-backed reply generation for assistant chats. Failures come back
// categorized so the conversation layer can turn them into in-chat
// fallback messages instead of crashing the view.

package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

var (
	ErrMissingAPIKey     = errors.New("assistant API key is not configured")
	ErrInvalidCredential = errors.New("assistant API key is not valid")
	ErrRateLimited       = errors.New("assistant request was rate limited or blocked")
	ErrGenerateFailed    = errors.New("assistant failed to generate a reply")
)

const systemInstruction = `You are a friendly and helpful AI assistant for the Genius Institute of Information Technology (GiiT) community.
Your goal is to assist users with their queries related to GiiT, provide information, help with navigation within the community platform, and engage in general conversation.
Keep your responses concise, informative, and maintain a positive and supportive tone.
When providing information from the web, always cite your sources clearly if they are available in the grounding metadata.
Do not make up information about GiiT if you don't know it. Instead, suggest asking a community admin or checking official GiiT resources.`

// maxHistoryTurns bounds how much conversation context each request carries.
const maxHistoryTurns = 6

// Turn is one prior message in the conversation, from the user or the model.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// Source is a citation attached to a grounded reply.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Reply is a generated assistant response.
type Reply struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
}

type Client struct {
	gc    *genai.Client
	model string
	log   *zap.SugaredLogger
}

// New builds a Gemini client. An empty API key is an error; callers treat
// it as "assistant disabled" rather than fatal.
func New(ctx context.Context, apiKey, model string, log *zap.SugaredLogger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerateFailed, err)
	}

	return &Client{gc: gc, model: model, log: log}, nil
}

// GenerateReply sends the prompt with recent history and returns the
// assistant's reply text plus any grounding sources.
func (c *Client) GenerateReply(ctx context.Context, prompt string, history []Turn) (*Reply, error) {
	contents := buildContents(prompt, history)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		Temperature: ptr(float32(0.7)),
		TopP:        ptr(float32(0.95)),
	}

	resp, err := c.gc.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, categorize(err)
	}

	reply := extractReply(resp)
	if reply.Text == "" && len(reply.Sources) == 0 {
		c.log.Warnw("assistant returned an empty response", "prompt", prompt)
		reply.Text = "I received a response, but it was empty. Could you try rephrasing?"
	}
	if reply.Text == "" {
		reply.Text = "No textual answer provided, check sources if available."
	}
	return reply, nil
}

// buildContents converts history into genai contents, keeping the last
// maxHistoryTurns non-empty turns, and appends the current prompt.
func buildContents(prompt string, history []Turn) []*genai.Content {
	filtered := make([]Turn, 0, len(history))
	for _, t := range history {
		if t.Text != "" {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) > maxHistoryTurns {
		filtered = filtered[len(filtered)-maxHistoryTurns:]
	}

	contents := make([]*genai.Content, 0, len(filtered)+1)
	for _, t := range filtered {
		role := genai.RoleUser
		if t.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	})
	return contents
}

func extractReply(resp *genai.GenerateContentResponse) *Reply {
	reply := &Reply{}
	if len(resp.Candidates) == 0 {
		return reply
	}

	cand := resp.Candidates[0]
	if cand.Content != nil {
		var sb strings.Builder
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		reply.Text = sb.String()
	}

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web != nil {
				reply.Sources = append(reply.Sources, Source{
					Title: chunk.Web.Title,
					URI:   chunk.Web.URI,
				})
			}
		}
	}
	return reply
}

// categorize maps transport errors onto the package taxonomy.
func categorize(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "api_key_invalid"),
		strings.Contains(msg, "invalid api key"):
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "resource has been exhausted"),
		strings.Contains(msg, "resource_exhausted"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return fmt.Errorf("%w: %v", ErrGenerateFailed, err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
