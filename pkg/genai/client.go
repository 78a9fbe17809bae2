// Package genai wraps the Gemini text-generation API for the chat
// orchestrator. The client is stateless: the full conversation history
// is handed to it on every call, with the session store as the sole
// source of truth.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/airsimlabs/go-dronechat/internal/httpc"
	"github.com/airsimlabs/go-dronechat/pkg/chat"
	"github.com/airsimlabs/go-dronechat/pkg/extract"
	"github.com/airsimlabs/go-dronechat/pkg/tools"
)

// DefaultEndpoint is the Gemini REST API base URL.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// ErrUnavailable signals that the generation backend could not be
// reached or did not answer in time. The orchestrator switches to the
// fallback responder when it sees this.
var ErrUnavailable = errors.New("genai: generation backend unavailable")

// Client calls the Gemini generateContent endpoint with an assembled
// prompt of system preamble, tool catalog, and conversation history.
type Client struct {
	apiKey       string
	model        string
	endpoint     string
	systemPrompt string
	registry     *tools.Registry
	http         *http.Client
}

// New creates a generation client. The timeout bounds each call so a
// hung backend cannot block a turn indefinitely.
func New(apiKey, model, systemPrompt string, registry *tools.Registry, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = httpc.DefaultTimeout
	}
	return &Client{
		apiKey:       apiKey,
		model:        model,
		endpoint:     DefaultEndpoint,
		systemPrompt: systemPrompt,
		registry:     registry,
		http:         httpc.NewClient(timeout),
	}
}

// WithEndpoint overrides the API base URL. Used by tests.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = strings.TrimRight(endpoint, "/")
	return c
}

// Gemini generateContent wire types, reduced to the fields we use.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Converse sends the assembled prompt for the given history and
// returns the model's raw reply text. Transport errors, timeouts, and
// non-2xx responses are reported as ErrUnavailable (wrapped).
func (c *Client) Converse(ctx context.Context, history []chat.Message) (string, error) {
	prompt := c.BuildPrompt(history)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("genai: failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("genai: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(data))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

// BuildPrompt assembles the single-string prompt: system preamble,
// tool catalog with invocation instructions, then the history as
// labeled turns, ending with an assistant cue.
func (c *Client) BuildPrompt(history []chat.Message) string {
	var b strings.Builder
	b.WriteString(c.systemPrompt)
	b.WriteString("\n\n")
	b.WriteString(c.registry.PromptBlock())
	b.WriteString(markerInstructions)
	b.WriteString("\n\n")

	for _, msg := range history {
		switch msg.Role {
		case chat.RoleUser:
			fmt.Fprintf(&b, "User: %s\n\n", msg.Content)
		case chat.RoleAssistant:
			fmt.Fprintf(&b, "Assistant: %s\n\n", msg.Content)
		case chat.RoleSystem:
			fmt.Fprintf(&b, "System: %s\n\n", msg.Content)
		}
	}

	b.WriteString("Assistant:")
	return b.String()
}

var markerInstructions = fmt.Sprintf(`When you need to invoke a tool, use exactly this format:
%s
{
  "tool": "tool_name",
  "parameters": {}
}
%s

For example:
%s
{
  "tool": "takeoff",
  "parameters": {"altitude": 10}
}
%s

Describe what you are about to do before invoking a tool.`,
	extract.StartMarker, extract.EndMarker, extract.StartMarker, extract.EndMarker)
