package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/airsimlabs/go-dronechat/pkg/bridge"
	"github.com/airsimlabs/go-dronechat/pkg/chat"
	"github.com/airsimlabs/go-dronechat/pkg/genai"
	"github.com/airsimlabs/go-dronechat/pkg/session"
	"github.com/airsimlabs/go-dronechat/pkg/tools"
)

// mockGen returns queued replies in order, or errors
type mockGen struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
}

func (m *mockGen) Converse(ctx context.Context, history []chat.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return "", nil
}

func (m *mockGen) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockExec records execution order
type mockExec struct {
	mu     sync.Mutex
	tools  []string
	result bridge.Result
}

func (m *mockExec) Execute(ctx context.Context, tool string, parameters map[string]any) bridge.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = append(m.tools, tool)
	return m.result
}

// mockFallback records whether it was used
type mockFallback struct {
	mu    sync.Mutex
	calls int
}

func (m *mockFallback) Converse(ctx context.Context, history []chat.Message) (string, []chat.ToolCallRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return "fallback reply", []chat.ToolCallRecord{{Tool: "takeoff", Parameters: map[string]any{"altitude": 10.0}, Result: map[string]any{"message": "done"}}}
}

func newTestOrchestrator(t *testing.T, gen *mockGen, exec *mockExec, fb *mockFallback) (*Orchestrator, *session.Store) {
	t.Helper()
	registry, err := tools.NewRegistry(tools.DroneTools())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	store := session.New(20, time.Hour)
	return New(store, registry, gen, exec, fb), store
}

func okExec() *mockExec {
	return &mockExec{result: bridge.Result{Success: true, Result: map[string]any{"message": "done"}}}
}

func TestProcess_PlainReply(t *testing.T) {
	gen := &mockGen{replies: []string{"Hello, operator."}}
	exec := okExec()
	orch, store := newTestOrchestrator(t, gen, exec, &mockFallback{})

	reply, records, sid := orch.Process(context.Background(), "", "hi")

	if reply != "Hello, operator." {
		t.Errorf("reply: got %q", reply)
	}
	if len(records) != 0 {
		t.Errorf("records: got %v, want none", records)
	}
	if gen.callCount() != 1 {
		t.Errorf("generation calls: got %d, want 1 (no second pass without tool calls)", gen.callCount())
	}

	msgs := store.Messages(sid)
	if len(msgs) != 2 {
		t.Fatalf("session has %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != chat.RoleUser || msgs[1].Role != chat.RoleAssistant {
		t.Errorf("roles: got %v, %v", msgs[0].Role, msgs[1].Role)
	}
}

func TestProcess_SequentialExecutionOrder(t *testing.T) {
	raw := `Flying a pattern.
[TOOL_CALL]{"tool":"takeoff","parameters":{"altitude":10}}[/TOOL_CALL]
[TOOL_CALL]{"tool":"move_to_position","parameters":{"x":1,"y":0,"z":-10}}[/TOOL_CALL]
[TOOL_CALL]{"tool":"land","parameters":{}}[/TOOL_CALL]`
	gen := &mockGen{replies: []string{raw, "All done."}}
	exec := okExec()
	orch, _ := newTestOrchestrator(t, gen, exec, &mockFallback{})

	reply, records, _ := orch.Process(context.Background(), "", "fly a pattern")

	want := []string{"takeoff", "move_to_position", "land"}
	if len(exec.tools) != len(want) {
		t.Fatalf("executed %v, want %v", exec.tools, want)
	}
	for i := range want {
		if exec.tools[i] != want[i] {
			t.Errorf("execution order[%d]: got %q, want %q", i, exec.tools[i], want[i])
		}
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
	if reply != "All done." {
		t.Errorf("reply: got %q, want second-pass text", reply)
	}
	if gen.callCount() != 2 {
		t.Errorf("generation calls: got %d, want 2", gen.callCount())
	}
}

func TestProcess_UnknownToolNeverBridged(t *testing.T) {
	raw := `[TOOL_CALL]{"tool":"teleport","parameters":{}}[/TOOL_CALL]`
	gen := &mockGen{replies: []string{raw, "Sorry, I can't do that."}}
	exec := okExec()
	orch, _ := newTestOrchestrator(t, gen, exec, &mockFallback{})

	_, records, _ := orch.Process(context.Background(), "", "teleport home")

	if len(exec.tools) != 0 {
		t.Errorf("bridge saw %v, want nothing", exec.tools)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Tool != "teleport" || records[0].Error == "" {
		t.Errorf("record: got %+v, want validation error", records[0])
	}
}

func TestProcess_MissingRequiredParam(t *testing.T) {
	raw := `[TOOL_CALL]{"tool":"takeoff","parameters":{}}[/TOOL_CALL]`
	gen := &mockGen{replies: []string{raw, "noted"}}
	exec := okExec()
	orch, _ := newTestOrchestrator(t, gen, exec, &mockFallback{})

	_, records, _ := orch.Process(context.Background(), "", "take off")

	if len(exec.tools) != 0 {
		t.Errorf("bridge saw %v for invalid call", exec.tools)
	}
	if len(records) != 1 || !strings.Contains(records[0].Error, "altitude") {
		t.Errorf("records: got %+v", records)
	}
}

func TestProcess_FallbackOnUnavailable(t *testing.T) {
	gen := &mockGen{errs: []error{genai.ErrUnavailable}}
	exec := okExec()
	fb := &mockFallback{}
	orch, store := newTestOrchestrator(t, gen, exec, fb)

	reply, records, sid := orch.Process(context.Background(), "", "take off")

	if fb.calls != 1 {
		t.Fatalf("fallback calls: got %d, want 1", fb.calls)
	}
	if reply != "fallback reply" {
		t.Errorf("reply: got %q", reply)
	}
	if len(records) != 1 {
		t.Errorf("records: got %v", records)
	}
	// No second generation pass when the backend is down
	if gen.callCount() != 1 {
		t.Errorf("generation calls: got %d, want 1", gen.callCount())
	}

	msgs := store.Messages(sid)
	if len(msgs) != 2 || len(msgs[1].ToolCalls) != 1 {
		t.Errorf("fallback turn not recorded in session: %+v", msgs)
	}
}

func TestProcess_BridgeFailureContinuesLoop(t *testing.T) {
	raw := `[TOOL_CALL]{"tool":"takeoff","parameters":{"altitude":10}}[/TOOL_CALL]
[TOOL_CALL]{"tool":"land","parameters":{}}[/TOOL_CALL]`
	gen := &mockGen{replies: []string{raw, "done"}}
	exec := &mockExec{result: bridge.Result{Success: false, Error: "actuator offline"}}
	orch, _ := newTestOrchestrator(t, gen, exec, &mockFallback{})

	_, records, _ := orch.Process(context.Background(), "", "go")

	// Both calls attempted despite the first failing
	if len(exec.tools) != 2 {
		t.Fatalf("executed %v, want both calls attempted", exec.tools)
	}
	for _, r := range records {
		if r.Error != "actuator offline" {
			t.Errorf("record: got %+v", r)
		}
	}
}

func TestProcess_SecondPassFailureDegrades(t *testing.T) {
	raw := `Taking off. [TOOL_CALL]{"tool":"takeoff","parameters":{"altitude":10}}[/TOOL_CALL]`
	gen := &mockGen{
		replies: []string{raw, ""},
		errs:    []error{nil, genai.ErrUnavailable},
	}
	exec := okExec()
	orch, _ := newTestOrchestrator(t, gen, exec, &mockFallback{})

	reply, records, _ := orch.Process(context.Background(), "", "take off")

	if reply != "Taking off." {
		t.Errorf("reply: got %q, want first-pass clean text", reply)
	}
	if len(records) != 1 || !records[0].OK() {
		t.Errorf("records: got %+v", records)
	}
}

func TestProcess_SecondPassToolCallsIgnored(t *testing.T) {
	first := `Going up. [TOOL_CALL]{"tool":"takeoff","parameters":{"altitude":10}}[/TOOL_CALL]`
	second := `Up we go. [TOOL_CALL]{"tool":"land","parameters":{}}[/TOOL_CALL]`
	gen := &mockGen{replies: []string{first, second}}
	exec := okExec()
	orch, _ := newTestOrchestrator(t, gen, exec, &mockFallback{})

	reply, records, _ := orch.Process(context.Background(), "", "take off")

	// Bounded loop: the second pass never triggers more executions
	if len(exec.tools) != 1 {
		t.Errorf("executed %v, want only the first-pass call", exec.tools)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
	if strings.Contains(reply, "[TOOL_CALL]") {
		t.Errorf("reply leaks markers: %q", reply)
	}
}

func TestProcess_SessionContinuity(t *testing.T) {
	gen := &mockGen{replies: []string{"first", "second"}}
	orch, store := newTestOrchestrator(t, gen, okExec(), &mockFallback{})

	_, _, sid := orch.Process(context.Background(), "", "one")
	_, _, sid2 := orch.Process(context.Background(), sid, "two")

	if sid2 != sid {
		t.Fatalf("session id changed: %q -> %q", sid, sid2)
	}
	if got := len(store.Messages(sid)); got != 4 {
		t.Errorf("session has %d messages, want 4", got)
	}
}

func TestClear_Idempotent(t *testing.T) {
	gen := &mockGen{replies: []string{"hello"}}
	orch, store := newTestOrchestrator(t, gen, okExec(), &mockFallback{})

	_, _, sid := orch.Process(context.Background(), "", "hi")
	orch.Clear(sid)
	orch.Clear(sid)

	if got := len(store.Messages(sid)); got != 0 {
		t.Errorf("session has %d messages after clear", got)
	}
}
