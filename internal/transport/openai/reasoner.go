// Package openai adapts an OpenAI-compatible chat completion API to the
// domain.Reasoner contract, binding the single search_nfcorpus tool.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nfagent/internal/domain"
	"github.com/kailas-cloud/nfagent/internal/metrics"
)

const toolName = "search_nfcorpus"

const systemPrompt = `You are a biomedical document retrieval expert. Your task is to find the most relevant
documents from the NFCorpus database for a given query.

You have access to a search tool that queries a vector database of biomedical articles.
You can:
1. Reformulate the query if needed for better results
2. Make multiple searches with different query variations
3. Analyze the returned documents and their relevance scores
4. Decide on the final ranking of documents

Your output must be a list of document IDs in ranked order (most relevant first).
Return exactly the number of documents requested (top_k), or fewer if insufficient matches.
Respond with a JSON object of the form {"doc_ids": [...]}, nothing else.`

var toolParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {"type": "string", "description": "Search query text"},
		"top_k": {"type": "integer", "description": "Number of documents to retrieve"}
	},
	"required": ["query"]
}`)

// Reasoner drives chat completions against an OpenAI-compatible endpoint.
type Reasoner struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the reasoning-process settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewReasoner creates an OpenAI-compatible reasoning-process client.
func NewReasoner(cfg *Config) *Reasoner {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reasoner{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

var _ domain.Reasoner = (*Reasoner)(nil)

// NewConversation implements domain.Reasoner.
func (r *Reasoner) NewConversation(query string, topK int) domain.Conversation {
	return &conversation{
		reasoner: r,
		msgs: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Find the top %d most relevant documents for this query: %s", topK, query),
			},
		},
	}
}

// conversation accumulates one reasoning exchange.
type conversation struct {
	reasoner *Reasoner
	msgs     []openai.ChatCompletionMessage
}

// Step implements domain.Conversation.
func (c *conversation) Step(ctx context.Context) (domain.Reply, error) {
	r := c.reasoner

	req := openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: c.msgs,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolName,
				Description: "Search NFCorpus biomedical database for relevant documents.",
				Parameters:  toolParameters,
			},
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()

	resp, err := r.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(r.model, "error").Inc()
		// Let the deadline surface as-is so the orchestrator can report a timeout.
		if ctx.Err() != nil {
			return domain.Reply{}, ctx.Err()
		}
		return domain.Reply{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(r.model, "error").Inc()
		return domain.Reply{}, fmt.Errorf("empty completion response: %w", domain.ErrDependency)
	}

	metrics.LLMRequestsTotal.WithLabelValues(r.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(r.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(r.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(r.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	msg := resp.Choices[0].Message
	c.msgs = append(c.msgs, msg)

	reply := domain.Reply{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name != toolName {
			return domain.Reply{}, fmt.Errorf(
				"%w: model invoked unknown tool %q", domain.ErrOrchestration, tc.Function.Name)
		}
		var args struct {
			Query string `json:"query"`
			TopK  int    `json:"top_k"`
		}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return domain.Reply{}, fmt.Errorf(
				"%w: malformed tool arguments %q: %v", domain.ErrOrchestration, tc.Function.Arguments, err)
		}
		reply.ToolCalls = append(reply.ToolCalls, domain.ToolCall{
			ID:    tc.ID,
			Query: args.Query,
			TopK:  args.TopK,
		})
	}

	return reply, nil
}

// AddToolResult implements domain.Conversation.
func (c *conversation) AddToolResult(callID string, content string) {
	c.msgs = append(c.msgs, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		ToolCallID: callID,
		Content:    content,
	})
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (r *Reasoner) HealthCheck(ctx context.Context) error {
	if _, err := r.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrDependency for correct failure mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrDependency

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request failed: %v: %w", err, wrap)
}
