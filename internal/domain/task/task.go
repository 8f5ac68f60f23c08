// Package task models the protocol-level lifecycle of one retrieval request.
// A task is bookkeeping for the agent-to-agent transport, not retrieval
// state: no document data outlives the orchestration turn beyond the final
// identifier list.
package task

import (
	"time"

	"github.com/google/uuid"
)

// State is an agent-to-agent task lifecycle state.
type State string

const (
	// Submitted means the task was accepted but not started.
	Submitted State = "submitted"
	// Working means the orchestration is in flight.
	Working State = "working"
	// Completed means the orchestration produced a contract-conformant ranking.
	Completed State = "completed"
	// Failed means the orchestration surfaced an error.
	Failed State = "failed"
	// Canceled means the caller canceled the task before completion.
	Canceled State = "canceled"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Canceled
}

// Task records one retrieval request lifecycle.
type Task struct {
	ID            string    `json:"id"`
	ContextID     string    `json:"context_id"`
	State         State     `json:"state"`
	StatusMessage string    `json:"status_message,omitempty"`
	DocIDs        []string  `json:"doc_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// New creates a submitted task. An empty contextID gets a fresh one.
func New(contextID string) Task {
	if contextID == "" {
		contextID = uuid.NewString()
	}
	now := time.Now().UTC()
	return Task{
		ID:        uuid.NewString(),
		ContextID: contextID,
		State:     Submitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start marks the task as working.
func (t *Task) Start(statusMessage string) {
	t.transition(Working, statusMessage)
}

// Complete records the final ranking and marks the task completed.
func (t *Task) Complete(docIDs []string) {
	t.DocIDs = append([]string(nil), docIDs...)
	t.transition(Completed, "")
}

// Fail marks the task failed with a caller-visible message.
func (t *Task) Fail(statusMessage string) {
	t.DocIDs = nil
	t.transition(Failed, statusMessage)
}

// Cancel marks the task canceled. Returns false if the task is already
// terminal.
func (t *Task) Cancel() bool {
	if t.State.Terminal() {
		return false
	}
	t.transition(Canceled, "canceled by caller")
	return true
}

func (t *Task) transition(s State, msg string) {
	t.State = s
	t.StatusMessage = msg
	t.UpdatedAt = time.Now().UTC()
}
