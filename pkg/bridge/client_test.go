package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExecute_Success(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody executeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(Result{
			Success: true,
			Result:  map[string]any{"message": "Takeoff to 10m completed"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", 5*time.Second)
	result := c.Execute(context.Background(), "takeoff", map[string]any{"altitude": 10.0})

	if !result.Success {
		t.Fatalf("got failure: %q", result.Error)
	}
	if result.Error != "" {
		t.Errorf("success result carries error %q", result.Error)
	}
	if result.Result["message"] != "Takeoff to 10m completed" {
		t.Errorf("result: got %v", result.Result)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth header: got %q", gotAuth)
	}
	if gotPath != ExecutePath {
		t.Errorf("path: got %q, want %q", gotPath, ExecutePath)
	}
	if gotBody.Tool != "takeoff" {
		t.Errorf("wire tool: got %q", gotBody.Tool)
	}
}

func TestExecute_RemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{Success: false, Error: "drone is not flying"})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", 5*time.Second)
	result := c.Execute(context.Background(), "land", nil)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "drone is not flying" {
		t.Errorf("error: got %q", result.Error)
	}
	if result.Result != nil {
		t.Errorf("failed result carries payload %v", result.Result)
	}
}

func TestExecute_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "wrong", 5*time.Second)
	result := c.Execute(context.Background(), "hover", nil)

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "401") {
		t.Errorf("error should mention status: %q", result.Error)
	}
}

func TestExecute_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, "secret", time.Second)
	result := c.Execute(context.Background(), "hover", nil)

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "unreachable") {
		t.Errorf("error: got %q, want transport failure description", result.Error)
	}
}

func TestListTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ToolsPath {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]ToolInfo{
			{Name: "takeoff", Description: "Take off"},
			{Name: "land", Description: "Land"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", 5*time.Second)
	tools := c.ListTools(context.Background())

	if len(tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(tools))
	}
	if tools[0].Name != "takeoff" {
		t.Errorf("first tool: got %q", tools[0].Name)
	}
}

func TestListTools_BestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, "secret", time.Second)
	if tools := c.ListTools(context.Background()); tools != nil {
		t.Errorf("got %v, want nil on failure", tools)
	}
}
