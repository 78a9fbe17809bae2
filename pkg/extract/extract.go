// Package extract parses generated text for embedded tool invocations,
// separating prose from machine-actionable calls.
//
// The generative backend marks an invocation by wrapping a JSON object
// with [TOOL_CALL] / [/TOOL_CALL] delimiters. Extraction is purely
// syntactic and best-effort: malformed blocks never fail the turn, and
// validation against the tool catalog belongs to the orchestrator.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/airsimlabs/go-dronechat/internal/log"
)

// Markers delimiting an embedded tool invocation.
const (
	StartMarker = "[TOOL_CALL]"
	EndMarker   = "[/TOOL_CALL]"
)

// Call is one candidate invocation extracted from generated text.
// It has not been validated against the tool catalog.
type Call struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// Extract scans raw for non-overlapping marker blocks and returns the
// text with every successfully parsed block removed (then trimmed),
// plus the candidate calls in order of appearance.
//
// A block whose interior is not valid JSON, or that lacks a tool name,
// is logged and left in the clean text as-is: surfacing model
// malformation beats hiding it.
func Extract(raw string) (string, []Call) {
	var calls []Call
	var clean strings.Builder

	rest := raw
	for {
		start := strings.Index(rest, StartMarker)
		if start < 0 {
			clean.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+len(StartMarker):], EndMarker)
		if end < 0 {
			// Unbalanced marker; leave the tail untouched.
			clean.WriteString(rest)
			break
		}

		inner := rest[start+len(StartMarker) : start+len(StartMarker)+end]
		block := rest[start : start+len(StartMarker)+end+len(EndMarker)]

		call, ok := parseCall(inner)
		if ok {
			clean.WriteString(rest[:start])
			calls = append(calls, call)
		} else {
			log.Warn("dropping malformed tool call block", "block", block)
			clean.WriteString(rest[:start])
			clean.WriteString(block)
		}

		rest = rest[start+len(StartMarker)+end+len(EndMarker):]
	}

	return strings.TrimSpace(clean.String()), calls
}

func parseCall(inner string) (Call, bool) {
	var call Call
	if err := json.Unmarshal([]byte(strings.TrimSpace(inner)), &call); err != nil {
		return Call{}, false
	}
	if call.Tool == "" {
		return Call{}, false
	}
	if call.Parameters == nil {
		call.Parameters = map[string]any{}
	}
	return call, true
}
