package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nfagent/internal/domain"
	"github.com/kailas-cloud/nfagent/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterRetrievalMetrics()
	os.Exit(m.Run())
}

// completionResponse mirrors the OpenAI-compatible chat completion response.
func completionResponse(content string, toolCalls []map[string]any) map[string]any {
	message := map[string]any{"role": "assistant", "content": content}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"model":   "test-model",
		"choices": []map[string]any{{"index": 0, "message": message, "finish_reason": "stop"}},
		"usage":   map[string]any{"prompt_tokens": 20, "completion_tokens": 10, "total_tokens": 30},
	}
}

func searchToolCall(id, arguments string) map[string]any {
	return map[string]any{
		"id":   id,
		"type": "function",
		"function": map[string]any{
			"name":      "search_nfcorpus",
			"arguments": arguments,
		},
	}
}

func newTestReasoner(baseURL string) *Reasoner {
	return NewReasoner(&Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})
}

func TestConversation_ToolCallRoundTrip(t *testing.T) {
	var requests []map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		requests = append(requests, body)

		w.Header().Set("Content-Type", "application/json")
		if len(requests) == 1 {
			_ = json.NewEncoder(w).Encode(completionResponse("", []map[string]any{
				searchToolCall("call-1", `{"query": "calcium bone density", "top_k": 3}`),
			}))
			return
		}
		_ = json.NewEncoder(w).Encode(completionResponse(`{"doc_ids": ["MED-10", "MED-14"]}`, nil))
	}))
	defer server.Close()

	conv := newTestReasoner(server.URL).NewConversation("calcium and bone health", 3)

	reply, err := conv.Step(context.Background())
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if reply.Terminal() {
		t.Fatal("expected a tool-call reply")
	}
	if len(reply.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(reply.ToolCalls))
	}
	tc := reply.ToolCalls[0]
	if tc.ID != "call-1" || tc.Query != "calcium bone density" || tc.TopK != 3 {
		t.Errorf("unexpected tool call: %+v", tc)
	}

	conv.AddToolResult(tc.ID, `{"results": [{"doc_id": "MED-10", "score": 0.9, "title": "t", "text": "x"}]}`)

	reply, err = conv.Step(context.Background())
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if !reply.Terminal() {
		t.Fatal("expected a terminal reply")
	}
	if !strings.Contains(reply.Content, "MED-10") {
		t.Errorf("unexpected terminal content: %q", reply.Content)
	}

	// The second request must carry the tool result back to the model.
	second, _ := json.Marshal(requests[1]["messages"])
	if !strings.Contains(string(second), `"tool"`) || !strings.Contains(string(second), "call-1") {
		t.Errorf("tool result missing from second request: %s", second)
	}

	// The first request must bind exactly the search tool.
	first, _ := json.Marshal(requests[0]["tools"])
	if !strings.Contains(string(first), "search_nfcorpus") {
		t.Errorf("search tool missing from request: %s", first)
	}
}

func TestConversation_OpeningMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.Messages) != 2 {
			t.Fatalf("expected 2 opening messages, got %d", len(body.Messages))
		}
		if body.Messages[0].Role != "system" {
			t.Errorf("expected system message first, got %s", body.Messages[0].Role)
		}
		if !strings.Contains(body.Messages[1].Content, "top 4") {
			t.Errorf("user message missing top_k: %q", body.Messages[1].Content)
		}
		if !strings.Contains(body.Messages[1].Content, "vitamin d deficiency") {
			t.Errorf("user message missing query: %q", body.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionResponse(`{"doc_ids": []}`, nil))
	}))
	defer server.Close()

	conv := newTestReasoner(server.URL).NewConversation("vitamin d deficiency", 4)
	if _, err := conv.Step(context.Background()); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
}

func TestConversation_APIErrorIsDependency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream exploded", "type": "server_error"}}`))
	}))
	defer server.Close()

	conv := newTestReasoner(server.URL).NewConversation("q", 5)

	_, err := conv.Step(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrDependency) {
		t.Errorf("expected ErrDependency, got %v", err)
	}
}

func TestConversation_MalformedToolArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionResponse("", []map[string]any{
			searchToolCall("call-1", `{"query": `),
		}))
	}))
	defer server.Close()

	conv := newTestReasoner(server.URL).NewConversation("q", 5)

	_, err := conv.Step(context.Background())
	if !errors.Is(err, domain.ErrOrchestration) {
		t.Errorf("expected ErrOrchestration, got %v", err)
	}
}

func TestConversation_UnknownTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionResponse("", []map[string]any{
			{
				"id":   "call-1",
				"type": "function",
				"function": map[string]any{
					"name":      "delete_everything",
					"arguments": `{}`,
				},
			},
		}))
	}))
	defer server.Close()

	conv := newTestReasoner(server.URL).NewConversation("q", 5)

	_, err := conv.Step(context.Background())
	if !errors.Is(err, domain.ErrOrchestration) {
		t.Errorf("expected ErrOrchestration, got %v", err)
	}
}
