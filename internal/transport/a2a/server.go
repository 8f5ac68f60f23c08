// Package a2a exposes the retrieval orchestrator over the agent-to-agent
// protocol: a JSON-RPC 2.0 endpoint plus the well-known agent card.
package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nfagent/internal/domain"
	domtask "github.com/kailas-cloud/nfagent/internal/domain/task"
	taskrepo "github.com/kailas-cloud/nfagent/internal/repository/task"
	healthuc "github.com/kailas-cloud/nfagent/internal/usecase/health"
)

// Retriever runs one orchestration turn for a validated request.
type Retriever interface {
	Retrieve(ctx context.Context, req domain.QueryRequest) (domain.RetrievalResponse, error)
}

// Server handles the agent-to-agent protocol surface.
type Server struct {
	retriever Retriever
	tasks     taskrepo.Store
	health    *healthuc.Service
	card      AgentCard
	logger    *zap.Logger
}

// NewServer creates an A2A protocol server.
func NewServer(
	retriever Retriever,
	tasks taskrepo.Store,
	health *healthuc.Service,
	card AgentCard,
	logger *zap.Logger,
) *Server {
	return &Server{
		retriever: retriever,
		tasks:     tasks,
		health:    health,
		card:      card,
		logger:    logger,
	}
}

// Routes mounts the protocol endpoints on a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/.well-known/agent-card.json", s.handleAgentCard)
	r.Post("/", s.handleRPC)
	r.Get("/health", s.handleHealth)
}

// handleAgentCard serves the capability descriptor.
func (s *Server) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.card)
}

// handleRPC dispatches one JSON-RPC request.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPCError(w, nil, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != "2.0" {
		writeRPCError(w, req.ID, codeInvalidRequest, "jsonrpc must be \"2.0\"")
		return
	}

	switch req.Method {
	case "message/send":
		s.messageSend(w, r, req)
	case "tasks/get":
		s.tasksGet(w, r, req)
	case "tasks/cancel":
		s.tasksCancel(w, r, req)
	default:
		writeRPCError(w, req.ID, codeMethodNotFound, "unknown method "+req.Method)
	}
}

// messageSend runs the full orchestration turn for an inbound message and
// returns the terminal task. Errors from the orchestrator become a failed
// task state, never a partial result.
func (s *Server) messageSend(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	var params struct {
		Message Message `json:"message"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeRPCError(w, req.ID, codeInvalidParams, "invalid message/send params")
		return
	}

	text := messageText(params.Message)
	if text == "" {
		writeRPCError(w, req.ID, codeInvalidParams, "message has no text parts")
		return
	}

	t := domtask.New(params.Message.ContextID)
	t.Start("Parsing query request...")
	if err := s.tasks.Save(r.Context(), t); err != nil {
		s.internalError(w, req.ID, "save task", err)
		return
	}

	query, err := domain.ParseQueryRequest([]byte(text))
	if err != nil {
		s.finishTask(w, r, req.ID, t, nil, err)
		return
	}

	resp, err := s.retriever.Retrieve(r.Context(), query)
	s.finishTask(w, r, req.ID, t, resp.DocIDs, err)
}

// finishTask records the orchestration outcome and replies with the task.
func (s *Server) finishTask(
	w http.ResponseWriter, r *http.Request,
	id json.RawMessage, t domtask.Task,
	docIDs []string, err error,
) {
	if err != nil {
		s.logger.Warn("retrieval failed",
			zap.String("task_id", t.ID),
			zap.Error(err),
		)
		t.Fail(failureMessage(err))
	} else {
		t.Complete(docIDs)
	}

	if err := s.tasks.Save(r.Context(), t); err != nil {
		s.internalError(w, id, "save task", err)
		return
	}

	writeResult(w, id, taskToWire(t))
}

// tasksGet returns a stored task by id.
func (s *Server) tasksGet(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.ID == "" {
		writeRPCError(w, req.ID, codeInvalidParams, "task id is required")
		return
	}

	t, err := s.tasks.Get(r.Context(), params.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeRPCError(w, req.ID, codeTaskNotFound, "task not found")
			return
		}
		s.internalError(w, req.ID, "get task", err)
		return
	}

	writeResult(w, req.ID, taskToWire(t))
}

// tasksCancel cancels a non-terminal task. Orchestrations run synchronously
// within message/send, so by the time a caller can cancel, the task is
// usually terminal already.
func (s *Server) tasksCancel(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.ID == "" {
		writeRPCError(w, req.ID, codeInvalidParams, "task id is required")
		return
	}

	t, err := s.tasks.Get(r.Context(), params.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeRPCError(w, req.ID, codeTaskNotFound, "task not found")
			return
		}
		s.internalError(w, req.ID, "get task", err)
		return
	}

	if !t.Cancel() {
		writeRPCError(w, req.ID, codeTaskNotCancelable, "task is already terminal")
		return
	}
	if err := s.tasks.Save(r.Context(), t); err != nil {
		s.internalError(w, req.ID, "save task", err)
		return
	}

	writeResult(w, req.ID, taskToWire(t))
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func (s *Server) internalError(w http.ResponseWriter, id json.RawMessage, op string, err error) {
	s.logger.Error("rpc internal error", zap.String("op", op), zap.Error(err))
	writeRPCError(w, id, codeInternalError, "internal error")
}

// failureMessage maps the error taxonomy to a caller-visible status message
// without exposing collaborator internals.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "Invalid request format: " + err.Error()
	case errors.Is(err, domain.ErrTimeout):
		return "Retrieval failed: orchestration timed out"
	case errors.Is(err, domain.ErrDependency):
		return "Retrieval failed: upstream dependency unavailable"
	case errors.Is(err, domain.ErrOrchestration):
		return "Retrieval failed: model produced an invalid ranking"
	default:
		return "Retrieval failed"
	}
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	writeJSON(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
