package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

func TestBuildSummaryContent(t *testing.T) {
	entries := []ledger.Entry{
		{Name: "alice", Timestamp: "08:01:12"},
		{Name: "bob", Timestamp: "09:15:40"},
	}

	content := buildSummaryContent("10-03-2025", entries)

	if !strings.Contains(content, "10-03-2025") {
		t.Errorf("content must mention the day: %q", content)
	}
	if !strings.Contains(content, "2 people") {
		t.Errorf("content must mention the headcount: %q", content)
	}
	if !strings.Contains(content, "alice - first seen at 08:01:12") {
		t.Errorf("content must list entries: %q", content)
	}
}

func TestBuildSummaryContent_Empty(t *testing.T) {
	content := buildSummaryContent("10-03-2025", nil)
	if !strings.Contains(content, "nobody was recorded") {
		t.Errorf("empty day must be explicit: %q", content)
	}
}

func TestOllamaProvider_SummarizeAttendance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "llama3.2",
			"message": {"role": "assistant", "content": "2 people attended."},
			"prompt_eval_count": 50,
			"eval_count": 10
		}`))
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "llama3.2")
	summary, err := p.SummarizeAttendance(context.Background(), "10-03-2025", []ledger.Entry{
		{Name: "alice", Timestamp: "08:01:12"},
		{Name: "bob", Timestamp: "09:15:40"},
	})
	if err != nil {
		t.Fatalf("SummarizeAttendance failed: %v", err)
	}
	if summary != "2 people attended." {
		t.Errorf("unexpected summary: %q", summary)
	}

	usage := p.GetUsage()
	if usage.InputTokens != 50 || usage.OutputTokens != 10 {
		t.Errorf("unexpected usage: %+v", usage)
	}
}

func TestOllamaProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "llama3.2")
	if _, err := p.SummarizeAttendance(context.Background(), "10-03-2025", nil); err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestLlamaCppProvider_SummarizeAttendance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "llama",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "One person attended."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 8, "total_tokens": 50}
		}`))
	}))
	defer server.Close()

	p := NewLlamaCppProvider(server.URL, "llama")
	summary, err := p.SummarizeAttendance(context.Background(), "10-03-2025", []ledger.Entry{
		{Name: "alice", Timestamp: "08:01:12"},
	})
	if err != nil {
		t.Fatalf("SummarizeAttendance failed: %v", err)
	}
	if summary != "One person attended." {
		t.Errorf("unexpected summary: %q", summary)
	}
	if p.GetUsage().InputTokens != 42 {
		t.Errorf("unexpected usage: %+v", p.GetUsage())
	}
}

func TestNewProvider(t *testing.T) {
	cfg := &config.Config{}
	ctx := context.Background()

	if _, err := NewProvider(ctx, "openai", cfg); err == nil {
		t.Error("openai without token must fail")
	}
	if _, err := NewProvider(ctx, "gemini", cfg); err == nil {
		t.Error("gemini without API key must fail")
	}
	if _, err := NewProvider(ctx, "nope", cfg); err == nil {
		t.Error("unknown provider must fail")
	}

	p, err := NewProvider(ctx, "ollama", cfg)
	if err != nil {
		t.Fatalf("ollama provider failed: %v", err)
	}
	if p.Name() != "llama3.2" {
		t.Errorf("unexpected default ollama model: %q", p.Name())
	}

	p, err = NewProvider(ctx, "llamacpp", cfg)
	if err != nil {
		t.Fatalf("llamacpp provider failed: %v", err)
	}
	if p.Name() != "llama" {
		t.Errorf("unexpected default llamacpp model: %q", p.Name())
	}
}
