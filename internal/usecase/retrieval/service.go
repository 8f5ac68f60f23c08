// Package retrieval runs the orchestration turn: a bounded reasoning loop
// with one tool binding, ending in a contract-checked ranking.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nfagent/internal/domain"
	"github.com/kailas-cloud/nfagent/internal/metrics"
)

// TopKPolicy governs tool calls whose top_k differs from the request's.
type TopKPolicy string

const (
	// TopKClamp caps the tool-call top_k at the request's top_k.
	TopKClamp TopKPolicy = "clamp"
	// TopKPass forwards the tool-call top_k unchanged.
	TopKPass TopKPolicy = "pass"
	// TopKReject fails the orchestration on a mismatching top_k.
	TopKReject TopKPolicy = "reject"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultMaxSteps = 8
)

// Service orchestrates one retrieval request per call. Stateless across
// requests; safe for concurrent use.
type Service struct {
	reasoner domain.Reasoner
	search   Searcher
	timeout  time.Duration
	maxSteps int
	policy   TopKPolicy
	logger   *zap.Logger
}

// New creates a retrieval service with default bounds (60s wall clock,
// 8 model turns, clamp policy).
func New(reasoner domain.Reasoner, search Searcher, logger *zap.Logger) *Service {
	return &Service{
		reasoner: reasoner,
		search:   search,
		timeout:  defaultTimeout,
		maxSteps: defaultMaxSteps,
		policy:   TopKClamp,
		logger:   logger,
	}
}

// WithBounds overrides the wall-clock timeout and step budget.
func (s *Service) WithBounds(timeout time.Duration, maxSteps int) *Service {
	if timeout > 0 {
		s.timeout = timeout
	}
	if maxSteps > 0 {
		s.maxSteps = maxSteps
	}
	return s
}

// WithTopKPolicy overrides the tool-call top_k policy.
func (s *Service) WithTopKPolicy(p TopKPolicy) *Service {
	s.policy = p
	return s
}

// Retrieve runs the reasoning loop for a validated request. Each iteration
// either executes the model's tool calls or accepts its terminal answer.
// The result is all-or-nothing: a contract-conformant ranking or an error.
func (s *Service) Retrieve(ctx context.Context, req domain.QueryRequest) (resp domain.RetrievalResponse, err error) {
	defer func() { metrics.OrchestrationsTotal.WithLabelValues(outcome(err)).Inc() }()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conv := s.reasoner.NewConversation(req.Query, req.TopK)

	for step := 0; step < s.maxSteps; step++ {
		reply, stepErr := conv.Step(ctx)
		if stepErr != nil {
			return domain.RetrievalResponse{}, s.classify(ctx, stepErr, "reasoning step")
		}

		if reply.Terminal() {
			return parseRanking(reply.Content, req.TopK)
		}

		for _, tc := range reply.ToolCalls {
			topK, policyErr := s.applyTopKPolicy(tc.TopK, req.TopK)
			if policyErr != nil {
				return domain.RetrievalResponse{}, policyErr
			}

			results, searchErr := s.search.Search(ctx, tc.Query, topK)
			if searchErr != nil {
				return domain.RetrievalResponse{}, s.classify(ctx, searchErr, "search call")
			}

			s.logger.Debug("tool call executed",
				zap.String("query", tc.Query),
				zap.Int("top_k", topK),
				zap.Int("results", len(results)),
			)

			conv.AddToolResult(tc.ID, encodeToolResult(results))
		}
	}

	return domain.RetrievalResponse{}, fmt.Errorf(
		"%w: no terminal answer after %d reasoning steps", domain.ErrOrchestration, s.maxSteps)
}

// applyTopKPolicy resolves the top_k the search capability is invoked with.
// A non-positive tool-call top_k means the model omitted it; the request's
// value applies regardless of policy.
func (s *Service) applyTopKPolicy(called, requested int) (int, error) {
	if called <= 0 {
		return requested, nil
	}
	switch s.policy {
	case TopKPass:
		return called, nil
	case TopKReject:
		if called != requested {
			return 0, fmt.Errorf(
				"%w: tool call requested top_k=%d, request allows %d", domain.ErrOrchestration, called, requested)
		}
		return called, nil
	default: // TopKClamp
		if called > requested {
			return requested, nil
		}
		return called, nil
	}
}

// classify maps a loop failure to the error taxonomy: the orchestration
// deadline wins over whatever the collaborator reported.
func (s *Service) classify(ctx context.Context, err error, op string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, domain.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// parseRanking decodes the model's terminal answer and checks the response
// contract. Accepts {"doc_ids": [...]} or a bare JSON array.
func parseRanking(content string, topK int) (domain.RetrievalResponse, error) {
	var wrapped struct {
		DocIDs []string `json:"doc_ids"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.DocIDs != nil {
		return domain.NewRetrievalResponse(wrapped.DocIDs, topK)
	}

	var bare []string
	if err := json.Unmarshal([]byte(content), &bare); err == nil {
		return domain.NewRetrievalResponse(bare, topK)
	}

	return domain.RetrievalResponse{}, fmt.Errorf(
		"%w: terminal answer is not a document identifier list: %q", domain.ErrOrchestration, content)
}

func encodeToolResult(results []domain.SearchResult) string {
	payload, err := json.Marshal(struct {
		Results []domain.SearchResult `json:"results"`
	}{Results: results})
	if err != nil {
		// SearchResult marshalling cannot fail; keep the loop alive anyway.
		return `{"results": []}`
	}
	return string(payload)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrDependency):
		return "dependency"
	case errors.Is(err, domain.ErrOrchestration):
		return "orchestration"
	default:
		return "error"
	}
}
