// Package bridge executes validated tool invocations against the
// remote drone actuation service over its authenticated HTTP API.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airsimlabs/go-dronechat/internal/httpc"
	"github.com/airsimlabs/go-dronechat/internal/log"
)

// API paths on the actuation service.
const (
	ExecutePath = "/api/v1/mcp/execute"
	ToolsPath   = "/api/v1/mcp/tools"
)

// Result is the normalized outcome of one invocation attempt.
// Result and Error are mutually exclusive.
type Result struct {
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ToolInfo is one entry of the actuation service's tool listing.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// executeRequest is the wire payload for ExecutePath.
type executeRequest struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// Client talks to the actuation service. One attempt per call, no
// retries: tool calls have side effects that make blind retries
// unsafe, so retry policy belongs to the caller.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a bridge client with a bounded per-call timeout.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = httpc.DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    httpc.NewClient(timeout),
	}
}

// Execute issues one authenticated call for the named tool. Transport
// failures, non-2xx responses, and remote-reported failures are all
// normalized into Result{Success: false}; the caller never sees a raw
// transport fault.
func (c *Client) Execute(ctx context.Context, tool string, parameters map[string]any) Result {
	if parameters == nil {
		parameters = map[string]any{}
	}

	body, err := json.Marshal(executeRequest{Tool: tool, Parameters: parameters})
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("failed to encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ExecutePath, bytes.NewReader(body))
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("bridge execute failed", "tool", tool, "error", err)
		return Result{Success: false, Error: fmt.Sprintf("actuation service unreachable: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{Success: false, Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("failed to decode response: %v", err)}
	}
	if !result.Success && result.Error == "" {
		result.Error = "actuation failed"
	}
	if result.Success {
		result.Error = ""
	}
	return result
}

// ListTools fetches the actuation service's tool listing. Best-effort:
// returns nil on any failure.
func (c *Client) ListTools(ctx context.Context) []ToolInfo {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ToolsPath, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("bridge tool listing failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var tools []ToolInfo
	if err := json.NewDecoder(resp.Body).Decode(&tools); err != nil {
		return nil
	}
	return tools
}
