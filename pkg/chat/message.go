// Package chat defines the conversation data model and API payloads
// shared between the orchestrator, session store, and web surface.
package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ToolCallRecord is the immutable record of one tool invocation attempt.
// Exactly one of Result and Error is set.
type ToolCallRecord struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// OK reports whether the invocation succeeded.
func (r ToolCallRecord) OK() bool {
	return r.Error == ""
}

// Message is one turn entry in a session's history.
// Immutable once appended to the store.
type Message struct {
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Request is the inbound chat payload.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Response is the outbound chat payload.
type Response struct {
	Reply     string           `json:"reply"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	SessionID string           `json:"session_id"`
	Timestamp time.Time        `json:"timestamp"`
}

// Event types delivered over the WebSocket chat endpoint.
const (
	EventStatus = "status"
	EventReply  = "reply"
	EventError  = "error"
)

// Event is one frame on the WebSocket chat endpoint.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"ts"` // Unix milliseconds
}

// NewEvent creates an event with the current timestamp.
func NewEvent(eventType string, data any) (*Event, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event data: %w", err)
		}
	}

	return &Event{
		Type:      eventType,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}
