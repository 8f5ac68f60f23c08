package domain

import "context"

// Reasoner opens reasoning conversations against an external language model.
// The model is an opaque collaborator: it interprets the query, decides how
// often to invoke the search capability, and judges the final ranking.
type Reasoner interface {
	NewConversation(query string, topK int) Conversation
}

// Conversation is one accumulating reasoning exchange. Not safe for
// concurrent use; each orchestration owns its conversation.
type Conversation interface {
	// Step sends the conversation so far and returns the model's reply.
	Step(ctx context.Context) (Reply, error)
	// AddToolResult records the outcome of a tool call so the next Step
	// can observe it.
	AddToolResult(callID string, content string)
}

// Reply is one model turn: either tool invocations or a terminal answer.
type Reply struct {
	ToolCalls []ToolCall
	Content   string
}

// Terminal reports whether the reply carries a final answer.
func (r Reply) Terminal() bool { return len(r.ToolCalls) == 0 }

// ToolCall is a parsed search invocation requested by the model.
type ToolCall struct {
	ID    string
	Query string
	TopK  int
}
