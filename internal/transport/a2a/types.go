package a2a

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domtask "github.com/kailas-cloud/nfagent/internal/domain/task"
)

// JSON-RPC 2.0 envelope.

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC error codes, including A2A-specific ones.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603

	codeTaskNotFound      = -32001
	codeTaskNotCancelable = -32002
)

// Message is an A2A protocol message.
type Message struct {
	Kind      string `json:"kind"`
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
	MessageID string `json:"messageId"`
	TaskID    string `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
}

// Part is one content block of a message or artifact.
type Part struct {
	Kind string         `json:"kind"` // "text" or "data"
	Text string         `json:"text,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// TaskStatus is the wire shape of a task state transition.
type TaskStatus struct {
	State     string   `json:"state"`
	Message   *Message `json:"message,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Artifact is an output attached to a completed task.
type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name"`
	Parts      []Part `json:"parts"`
}

// Task is the wire shape of a task record.
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
	Kind      string     `json:"kind"`
}

// messageText concatenates the text parts of a message, mirroring how the
// protocol extracts a payload from mixed-part messages.
func messageText(m Message) string {
	var out string
	for _, p := range m.Parts {
		if p.Kind == "text" {
			out += p.Text
		}
	}
	return out
}

// agentTextMessage builds an agent-role status message with one text part.
func agentTextMessage(text string) *Message {
	return &Message{
		Kind:      "message",
		Role:      "agent",
		Parts:     []Part{{Kind: "text", Text: text}},
		MessageID: uuid.NewString(),
	}
}

// taskToWire converts a domain task record to its protocol shape. A
// completed task carries the ranking as a single data artifact; a failed
// task carries only a status message — never a partial doc_ids payload.
func taskToWire(t domtask.Task) Task {
	wire := Task{
		ID:        t.ID,
		ContextID: t.ContextID,
		Kind:      "task",
		Status: TaskStatus{
			State:     string(t.State),
			Timestamp: t.UpdatedAt.Format(time.RFC3339),
		},
	}
	if t.StatusMessage != "" {
		wire.Status.Message = agentTextMessage(t.StatusMessage)
	}
	if t.State == domtask.Completed {
		docIDs := make([]any, len(t.DocIDs))
		for i, id := range t.DocIDs {
			docIDs[i] = id
		}
		wire.Artifacts = []Artifact{{
			ArtifactID: uuid.NewString(),
			Name:       "retrieval_results",
			Parts: []Part{{
				Kind: "data",
				Data: map[string]any{"doc_ids": docIDs},
			}},
		}}
	}
	return wire
}
