package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/agentgov/internal/domain"
	"github.com/xela07ax/agentgov/internal/governance"
	"github.com/xela07ax/agentgov/internal/infra/auth"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.tokens.Issue(req.Username, req.Password)
	if err != nil {
		// Не различаем "нет такого" и "пароль не подошел"
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type evaluateContentRequest struct {
	Text      string `json:"text"`
	Direction string `json:"direction"`
}

func (s *Server) handleEvaluateContent(w http.ResponseWriter, r *http.Request) {
	var req evaluateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	principal := s.principal(r)
	result, err := s.engine.EvaluateContent(r.Context(), governance.ContentInput{
		Text:      req.Text,
		Direction: req.Direction,
		ActorID:   principal.AgentID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

type evaluateToolCallRequest struct {
	AgentID    string                 `json:"agent_id"`
	ActionType string                 `json:"action_type"`
	ToolName   string                 `json:"tool_name"`
	Params     map[string]interface{} `json:"params"`
}

func (s *Server) handleEvaluateToolCall(w http.ResponseWriter, r *http.Request) {
	var req evaluateToolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	principal := s.principal(r)
	agentID := req.AgentID
	if agentID == "" {
		agentID = principal.AgentID
	}

	decision, err := s.engine.EvaluateToolCall(r.Context(), governance.ToolCallInput{
		ActorID:    principal.AgentID,
		Role:       principal.Role,
		AgentID:    agentID,
		ActionType: req.ActionType,
		ToolName:   req.ToolName,
		Params:     req.Params,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, decision)
}

type toolResultRequest struct {
	ToolName   string `json:"tool_name"`
	Detail     string `json:"detail"`
	CostTokens int    `json:"cost_tokens"`
}

func (s *Server) handleRecordToolResult(w http.ResponseWriter, r *http.Request) {
	var req toolResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	principal := s.principal(r)
	entry, err := s.engine.RecordToolResult(r.Context(), principal.AgentID, req.ToolName, req.Detail, req.CostTokens)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, entry)
}

func (s *Server) handleQueryConstraints(w http.ResponseWriter, r *http.Request) {
	actionType := r.URL.Query().Get("action_type")
	if actionType == "" {
		actionType = "tool_call"
	}

	expr, err := s.engine.QueryConstraints(r.Context(), s.principal(r), actionType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, expr)
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	state := domain.ApprovalState(r.URL.Query().Get("state"))
	if state == "" {
		state = domain.StatePending // Дефолт для удобства очереди операторов
	}

	list, err := s.approvals.FindByState(r.Context(), state)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	approval, err := s.approvals.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, approval)
}

type decideRequest struct {
	Decision string `json:"decision"` // approved | rejected | expired
}

func (s *Server) handleDecideApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	decision := domain.ApprovalState(req.Decision)
	switch decision {
	case domain.StateApproved, domain.StateRejected, domain.StateExpired, domain.StatePending:
		// pending пропускаем в ядро: state machine ответит Conflict
	default:
		http.Error(w, "unknown decision: "+req.Decision, http.StatusBadRequest)
		return
	}

	updated, err := s.engine.DecideApproval(r.Context(), id, decision, s.principal(r).AgentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, updated)
}

// handleFetchAudit возвращает след с фильтрацией
// GET /v1/audit?actor_id=...&action=...&limit=50
func (s *Server) handleFetchAudit(w http.ResponseWriter, r *http.Request) {
	actorID := r.URL.Query().Get("actor_id")
	actionPrefix := r.URL.Query().Get("action")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.auditLog.FetchEntries(r.Context(), actorID, actionPrefix, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, entries)
}

// principal собирает идентичность запроса из claims токена.
func (s *Server) principal(r *http.Request) domain.Principal {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.Principal()
	}
	return domain.Principal{}
}

// writeError маппит классификацию ошибок ядра в статус-коды HTTP.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("trace_id", extractTraceID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding error", zap.Error(err))
	}
}
