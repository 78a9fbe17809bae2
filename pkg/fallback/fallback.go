// Package fallback provides a deterministic command parser used when
// the generation backend is unreachable. It degrades the assistant to
// a constrained command shell instead of a hard failure, and needs no
// network besides the actuation bridge itself.
package fallback

import (
	"context"
	"regexp"
	"strconv"

	"github.com/airsimlabs/go-dronechat/internal/log"
	"github.com/airsimlabs/go-dronechat/pkg/bridge"
	"github.com/airsimlabs/go-dronechat/pkg/chat"
)

// Executor is the slice of the bridge the responder needs.
type Executor interface {
	Execute(ctx context.Context, tool string, parameters map[string]any) bridge.Result
}

// rule maps an utterance pattern to a tool invocation. A numeric
// literal in the utterance overrides the parameter named by numKey,
// scaled by numSign (direction rules need negative axes).
type rule struct {
	pattern *regexp.Regexp
	tool    string
	action  string
	params  map[string]any
	numKey  string
	numSign float64
}

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Responder matches the latest user message against an ordered rule
// set; the first matching rule wins.
type Responder struct {
	exec  Executor
	rules []rule
}

// New creates a responder bound to the given bridge.
func New(exec Executor) *Responder {
	return &Responder{
		exec: exec,
		rules: []rule{
			{
				pattern: regexp.MustCompile(`(?i)emergency|stop`),
				tool:    "emergency_stop",
				action:  "emergency stop",
				params:  map[string]any{},
			},
			{
				pattern: regexp.MustCompile(`(?i)take\s*off|launch|lift\s*off`),
				tool:    "takeoff",
				action:  "takeoff",
				params:  map[string]any{"altitude": 10.0},
				numKey:  "altitude",
				numSign: 1,
			},
			{
				pattern: regexp.MustCompile(`(?i)land|touch\s*down`),
				tool:    "land",
				action:  "landing",
				params:  map[string]any{},
			},
			{
				pattern: regexp.MustCompile(`(?i)hover|hold\s*position|stay`),
				tool:    "hover",
				action:  "hover",
				params:  map[string]any{},
			},
			{
				pattern: regexp.MustCompile(`(?i)status|state|where`),
				tool:    "get_drone_state",
				action:  "state query",
				params:  map[string]any{},
			},
			{
				pattern: regexp.MustCompile(`(?i)forward|ahead`),
				tool:    "move_to_position",
				action:  "move forward",
				params:  map[string]any{"x": 5.0, "y": 0.0, "z": -10.0},
				numKey:  "x",
				numSign: 1,
			},
			{
				pattern: regexp.MustCompile(`(?i)back(ward)?`),
				tool:    "move_to_position",
				action:  "move backward",
				params:  map[string]any{"x": -5.0, "y": 0.0, "z": -10.0},
				numKey:  "x",
				numSign: -1,
			},
			{
				pattern: regexp.MustCompile(`(?i)\bleft\b`),
				tool:    "move_to_position",
				action:  "move left",
				params:  map[string]any{"x": 0.0, "y": -5.0, "z": -10.0},
				numKey:  "y",
				numSign: -1,
			},
			{
				pattern: regexp.MustCompile(`(?i)\bright\b`),
				tool:    "move_to_position",
				action:  "move right",
				params:  map[string]any{"x": 0.0, "y": 5.0, "z": -10.0},
				numKey:  "y",
				numSign: 1,
			},
			{
				pattern: regexp.MustCompile(`(?i)\bup\b|ascend|climb`),
				tool:    "move_to_position",
				action:  "climb",
				params:  map[string]any{"x": 0.0, "y": 0.0, "z": -13.0},
				numKey:  "z",
				numSign: -1,
			},
			{
				pattern: regexp.MustCompile(`(?i)\bdown\b|descend`),
				tool:    "move_to_position",
				action:  "descend",
				params:  map[string]any{"x": 0.0, "y": 0.0, "z": -7.0},
				numKey:  "z",
				numSign: -1,
			},
		},
	}
}

// Converse handles one turn without the generation backend: the latest
// user message is matched against the rule set and a matching rule's
// tool is executed directly through the bridge.
func (r *Responder) Converse(ctx context.Context, history []chat.Message) (string, []chat.ToolCallRecord) {
	last := latestUserMessage(history)
	if last == "" {
		return "Hello! I'm the drone control assistant. Tell me what you want the drone to do.", nil
	}

	for _, rl := range r.rules {
		if !rl.pattern.MatchString(last) {
			continue
		}

		params := make(map[string]any, len(rl.params))
		for k, v := range rl.params {
			params[k] = v
		}
		if rl.numKey != "" {
			if m := numberRe.FindString(last); m != "" {
				if n, err := strconv.ParseFloat(m, 64); err == nil {
					params[rl.numKey] = n * rl.numSign
				}
			}
		}

		log.Info("fallback command matched", "tool", rl.tool, "params", params)
		result := r.exec.Execute(ctx, rl.tool, params)

		record := chat.ToolCallRecord{
			Tool:       rl.tool,
			Parameters: params,
		}
		if result.Success {
			record.Result = result.Result
			return "OK, I've executed the " + rl.action + " command.", []chat.ToolCallRecord{record}
		}
		record.Error = result.Error
		return "The " + rl.action + " command failed: " + result.Error, []chat.ToolCallRecord{record}
	}

	return "I couldn't understand that command. While the AI backend is offline I can only handle basic commands: take off, land, hover, move forward/backward/left/right/up/down, status, and stop.", nil
}

func latestUserMessage(history []chat.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == chat.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
