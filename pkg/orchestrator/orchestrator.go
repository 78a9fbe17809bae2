// Package orchestrator drives one chat turn: generation, tool-call
// extraction and validation, sequential actuation, an optional second
// generation pass folding tool outcomes into the final reply, and
// session bookkeeping.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/airsimlabs/go-dronechat/internal/log"
	"github.com/airsimlabs/go-dronechat/pkg/bridge"
	"github.com/airsimlabs/go-dronechat/pkg/chat"
	"github.com/airsimlabs/go-dronechat/pkg/extract"
	"github.com/airsimlabs/go-dronechat/pkg/session"
	"github.com/airsimlabs/go-dronechat/pkg/tools"
)

// Generator produces a raw reply for a conversation history.
type Generator interface {
	Converse(ctx context.Context, history []chat.Message) (string, error)
}

// Executor runs one validated tool invocation.
type Executor interface {
	Execute(ctx context.Context, tool string, parameters map[string]any) bridge.Result
}

// Fallback substitutes for the generator when it is unavailable.
type Fallback interface {
	Converse(ctx context.Context, history []chat.Message) (string, []chat.ToolCallRecord)
}

// Orchestrator is constructed once at startup with all its
// collaborators injected; it holds no global state.
type Orchestrator struct {
	store    *session.Store
	registry *tools.Registry
	gen      Generator
	exec     Executor
	fallback Fallback

	// Per-session serialization: concurrent turns on one session
	// must not interleave their history appends.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates an orchestrator.
func New(store *session.Store, registry *tools.Registry, gen Generator, exec Executor, fb Fallback) *Orchestrator {
	return &Orchestrator{
		store:    store,
		registry: registry,
		gen:      gen,
		exec:     exec,
		fallback: fb,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Process handles one turn for the given utterance. It never returns
// an error for generation, validation, or actuation failures; every
// failure mode produces a user-visible reply plus structured records.
func (o *Orchestrator) Process(ctx context.Context, sessionID, text string) (string, []chat.ToolCallRecord, string) {
	id := o.store.GetOrCreate(sessionID)

	lock := o.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	o.store.Append(id, chat.NewMessage(chat.RoleUser, text))
	history := o.store.Messages(id)

	raw, err := o.gen.Converse(ctx, history)
	var reply string
	var records []chat.ToolCallRecord
	if err != nil {
		log.Warn("generation unavailable, using fallback", "error", err)
		reply, records = o.fallback.Converse(ctx, history)
	} else {
		reply, records = o.handleGenerated(ctx, history, raw)
	}

	assistant := chat.NewMessage(chat.RoleAssistant, reply)
	assistant.ToolCalls = records
	o.store.Append(id, assistant)

	return reply, records, id
}

// Clear drops the session and its lock. Idempotent.
func (o *Orchestrator) Clear(sessionID string) {
	o.store.Clear(sessionID)
	o.locksMu.Lock()
	delete(o.locks, sessionID)
	o.locksMu.Unlock()
}

// handleGenerated extracts and runs tool calls from a raw reply, then
// folds their outcomes into a final reply with at most one extra
// generation pass.
func (o *Orchestrator) handleGenerated(ctx context.Context, history []chat.Message, raw string) (string, []chat.ToolCallRecord) {
	clean, calls := extract.Extract(raw)

	records := make([]chat.ToolCallRecord, 0, len(calls))
	for _, call := range calls {
		record := chat.ToolCallRecord{Tool: call.Tool, Parameters: call.Parameters}

		if err := o.registry.ValidateCall(call.Tool, call.Parameters); err != nil {
			// Invalid calls are recorded but never reach the bridge.
			record.Error = err.Error()
			records = append(records, record)
			log.Warn("rejected tool call", "tool", call.Tool, "error", err)
			continue
		}

		// Strictly sequential, in extraction order: actuator
		// commands are stateful and order-dependent.
		result := o.exec.Execute(ctx, call.Tool, call.Parameters)
		if result.Success {
			record.Result = result.Result
		} else {
			record.Error = result.Error
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return clean, nil
	}

	// Second pass, bounded to exactly one: any further tool calls the
	// model emits here are ignored rather than re-entering the loop.
	followup := make([]chat.Message, len(history), len(history)+2)
	copy(followup, history)
	followup = append(followup, chat.NewMessage(chat.RoleAssistant, clean))
	followup = append(followup, chat.NewMessage(chat.RoleSystem, summarize(records)))

	final, err := o.gen.Converse(ctx, followup)
	if err != nil {
		// Degrade to the first-pass text rather than failing the turn.
		log.Warn("second generation pass failed", "error", err)
		return clean, records
	}
	final, _ = extract.Extract(final)
	return final, records
}

// summarize renders tool outcomes as a system line for the second pass.
func summarize(records []chat.ToolCallRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		if r.OK() {
			lines = append(lines, fmt.Sprintf("Tool %s succeeded: %s", r.Tool, resultMessage(r.Result)))
		} else {
			lines = append(lines, fmt.Sprintf("Tool %s failed: %s", r.Tool, r.Error))
		}
	}
	return "Tool execution results:\n" + strings.Join(lines, "\n")
}

func resultMessage(result map[string]any) string {
	if msg, ok := result["message"].(string); ok && msg != "" {
		return msg
	}
	return "done"
}

func (o *Orchestrator) sessionLock(id string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[id] = lock
	}
	return lock
}
