package governance

/*
Файл engine.go — ядро governance-слоя. Engine гейтит действия автономных
агентов: фильтрует контент сообщений, ограничивает вызовы инструментов,
решает, нужен ли Human-in-the-loop, и ведет аудиторский след каждого решения.

Все зависимости (репозитории, аудит) инжектируются при сборке — никакого
глобального состояния и ambient-доступа. Один Engine на деплоймент.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/agentgov/internal/audit"
	"github.com/xela07ax/agentgov/internal/domain"
	"github.com/xela07ax/agentgov/internal/policy"
)

// PolicyRepository — read-only поставщик включенных политик.
// В проде за интерфейсом стоит MemoCache поверх Postgres.
type PolicyRepository interface {
	ListEnabled(ctx context.Context, category domain.PolicyCategory) ([]domain.Policy, error)
}

// ApprovalRepository — хранилище заявок Human-in-the-loop.
type ApprovalRepository interface {
	Create(ctx context.Context, agentID, actionType string, params map[string]interface{}) (*domain.ApprovalRequest, error)
	GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error)

	// UpdateStateIfPending — атомарный условный апдейт (WHERE state='pending').
	// Возвращает domain.ErrConflict, если заявка уже решена.
	UpdateStateIfPending(ctx context.Context, id string, newState domain.ApprovalState, deciderID string) (*domain.ApprovalRequest, error)
}

type Engine struct {
	policies  PolicyRepository
	approvals ApprovalRepository
	auditor   audit.Sink
	logger    *zap.Logger
	metrics   *Metrics
}

func NewEngine(policies PolicyRepository, approvals ApprovalRepository, auditor audit.Sink, logger *zap.Logger, metrics *Metrics) *Engine {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Engine{
		policies:  policies,
		approvals: approvals,
		auditor:   auditor,
		logger:    logger.Named("engine"),
		metrics:   metrics,
	}
}

// ContentInput описывает проверку текста сообщения.
type ContentInput struct {
	Text      string `json:"text"`
	Direction string `json:"direction"` // inbound | outbound
	ActorID   string `json:"actor_id"`
}

// ToolCallInput описывает запрос агента на вызов инструмента.
type ToolCallInput struct {
	ActorID    string                 `json:"actor_id"`
	Role       string                 `json:"role"` // "" — роль отсутствует
	AgentID    string                 `json:"agent_id"`
	ActionType string                 `json:"action_type"`
	ToolName   string                 `json:"tool_name"`
	Params     map[string]interface{} `json:"params"`
}

// ToolCallDecision — итог полного пайплайна tool-call:
// блокировка политикой, пропуск, либо пауза до человеческого решения.
type ToolCallDecision struct {
	Blocked    bool     `json:"blocked"`
	Reasons    []string `json:"reasons"`
	ApprovalID string   `json:"approval_id,omitempty"`
}

// EvaluateContent прогоняет текст через content_filter политики.
// Путь независим от tool/approval пайплайна.
func (e *Engine) EvaluateContent(ctx context.Context, in ContentInput) (*policy.ContentResult, error) {
	defer e.observe("evaluate_content", time.Now())

	if in.Direction != "inbound" && in.Direction != "outbound" {
		return nil, e.invalidInput("direction must be inbound or outbound")
	}

	ruleSets, err := e.loadRules(ctx, domain.CategoryContentFilter)
	if err != nil {
		return nil, err
	}

	result := policy.EvaluateContentPolicies(in.Text, ruleSets)

	// Аудит строго после того, как решение сформировано
	e.auditor.Append(in.ActorID, audit.ActorAgent,
		"policy.content."+in.Direction,
		mustJSON(map[string]interface{}{
			"allowed": result.Allowed,
			"reasons": result.Reasons,
		}), 0)

	e.countDecision("evaluate_content", outcomeLabel(result.Allowed))
	return &result, nil
}

// EvaluateToolCall — основной путь принятия решения:
// tool-политики (deny приоритетен) -> approval-политики -> заявка HITL.
// Каждый шаг оставляет ровно одну запись в аудите.
func (e *Engine) EvaluateToolCall(ctx context.Context, in ToolCallInput) (*ToolCallDecision, error) {
	defer e.observe("evaluate_tool_call", time.Now())

	if in.ToolName == "" {
		return nil, e.invalidInput("tool name is required")
	}
	if in.AgentID == "" {
		return nil, e.invalidInput("agent id is required")
	}

	toolRules, err := e.loadRules(ctx, domain.CategoryToolRestriction)
	if err != nil {
		return nil, err
	}

	toolResult := policy.EvaluateToolPolicies(in.ToolName, in.Role, toolRules)
	if !toolResult.Allowed {
		e.auditor.Append(in.ActorID, audit.ActorAgent, "policy.tool.blocked",
			mustJSON(map[string]interface{}{
				"toolName": in.ToolName,
				"reasons":  toolResult.Reasons,
			}), 0)
		e.countDecision("evaluate_tool_call", "blocked")
		// Заявка не создается: запрещенное действие не эскалируется людям
		return &ToolCallDecision{Blocked: true, Reasons: toolResult.Reasons}, nil
	}

	approvalRules, err := e.loadRules(ctx, domain.CategoryApprovalRequired)
	if err != nil {
		return nil, err
	}

	approvalResult := policy.EvaluateApprovalPolicies(in.ActionType, in.ToolName, in.Role, approvalRules)
	if !approvalResult.RequiresApproval {
		e.auditor.Append(in.ActorID, audit.ActorAgent, "approval.tool_call.not_required",
			mustJSON(map[string]interface{}{"toolName": in.ToolName}), 0)
		e.countDecision("evaluate_tool_call", "allowed")
		return &ToolCallDecision{Blocked: false, Reasons: []string{}}, nil
	}

	// Params заявки всегда содержат toolName, вызвавший гейт
	params := make(map[string]interface{}, len(in.Params)+1)
	for k, v := range in.Params {
		params[k] = v
	}
	params["toolName"] = in.ToolName

	created, err := e.approvals.Create(ctx, in.AgentID, in.ActionType, params)
	if err != nil {
		e.countError("storage")
		return nil, fmt.Errorf("create approval request: %w: %v", domain.ErrStorageUnavailable, err)
	}

	e.auditor.Append(in.ActorID, audit.ActorAgent, "approval.tool_call.pending",
		mustJSON(map[string]interface{}{
			"approvalId": created.ID,
			"toolName":   in.ToolName,
			"reasons":    approvalResult.Reasons,
		}), 0)

	e.logger.Info("tool call paused for approval",
		zap.String("agent_id", in.AgentID),
		zap.String("tool", in.ToolName),
		zap.String("approval_id", created.ID))

	e.countDecision("evaluate_tool_call", "pending")
	return &ToolCallDecision{
		Blocked:    true,
		Reasons:    approvalResult.Reasons,
		ApprovalID: created.ID,
	}, nil
}

// DecideApproval фиксирует человеческое решение по заявке. Решение применяется
// ровно один раз: два конкурентных вызова по одному ID детерминированно
// разрешаются атомарным condition-апдейтом — победитель один, проигравший
// получает Conflict.
func (e *Engine) DecideApproval(ctx context.Context, id string, decision domain.ApprovalState, deciderID string) (*domain.ApprovalRequest, error) {
	defer e.observe("decide_approval", time.Now())

	if id == "" {
		return nil, e.invalidInput("approval id is required")
	}
	if deciderID == "" {
		return nil, e.invalidInput("decider id is required")
	}

	current, err := e.approvals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			e.countError("not_found")
			return nil, err
		}
		e.countError("storage")
		return nil, fmt.Errorf("fetch approval: %w: %v", domain.ErrStorageUnavailable, err)
	}

	// Быстрая проверка state machine до похода в БД за апдейтом.
	// Покрывает и "уже решено", и невалидный целевой статус (включая pending).
	if !domain.CanTransition(current.State, decision) {
		e.countError("conflict")
		return nil, fmt.Errorf("transition %s -> %s: %w", current.State, decision, domain.ErrConflict)
	}

	updated, err := e.approvals.UpdateStateIfPending(ctx, id, decision, deciderID)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Гонка: кто-то успел решить между GetByID и апдейтом
			e.countError("conflict")
			return nil, err
		}
		e.countError("storage")
		return nil, fmt.Errorf("apply decision: %w: %v", domain.ErrStorageUnavailable, err)
	}

	// Аудит строго после коммита перехода
	e.auditor.Append(deciderID, audit.ActorUser, "approval.request.decided",
		mustJSON(map[string]interface{}{
			"approvalId":    id,
			"previousState": current.State,
			"newState":      updated.State,
		}), 0)

	e.countDecision("decide_approval", string(decision))
	return updated, nil
}

// QueryConstraints собирает консультативную сводку ограничений принципала.
// Не аудируется: это подсказка агенту, а не решение.
func (e *Engine) QueryConstraints(ctx context.Context, principal domain.Principal, actionType string) (*domain.ConstraintExpression, error) {
	defer e.observe("query_constraints", time.Now())

	toolPolicies, err := e.listEnabled(ctx, domain.CategoryToolRestriction)
	if err != nil {
		return nil, err
	}
	approvalPolicies, err := e.listEnabled(ctx, domain.CategoryApprovalRequired)
	if err != nil {
		return nil, err
	}

	expr := policy.AggregateConstraints(principal, actionType, toolPolicies, approvalPolicies)
	return &expr, nil
}

// RecordToolResult пишет в аудит итог выполнения инструмента (с учетом
// стоимости в токенах). Решений не принимает.
func (e *Engine) RecordToolResult(ctx context.Context, actorID, toolName, detail string, costTokens int) (*audit.AuditEntry, error) {
	if toolName == "" {
		return nil, e.invalidInput("tool name is required")
	}
	entry := e.auditor.Append(actorID, audit.ActorAgent, "tool.result."+toolName, detail, costTokens)
	return &entry, nil
}

func (e *Engine) listEnabled(ctx context.Context, category domain.PolicyCategory) ([]domain.Policy, error) {
	items, err := e.policies.ListEnabled(ctx, category)
	if err != nil {
		e.countError("storage")
		return nil, fmt.Errorf("list %s policies: %w: %v", category, domain.ErrStorageUnavailable, err)
	}
	return items, nil
}

func (e *Engine) loadRules(ctx context.Context, category domain.PolicyCategory) ([]json.RawMessage, error) {
	items, err := e.listEnabled(ctx, category)
	if err != nil {
		return nil, err
	}
	ruleSets := make([]json.RawMessage, 0, len(items))
	for _, p := range items {
		ruleSets = append(ruleSets, p.Rules)
	}
	return ruleSets, nil
}

func (e *Engine) invalidInput(msg string) error {
	e.countError("invalid_input")
	return fmt.Errorf("%s: %w", msg, domain.ErrInvalidInput)
}

func (e *Engine) observe(operation string, start time.Time) {
	e.metrics.EvaluationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (e *Engine) countDecision(operation, outcome string) {
	e.metrics.DecisionsTotal.WithLabelValues(operation, outcome).Inc()
}

func (e *Engine) countError(kind string) {
	e.metrics.ErrorsTotal.WithLabelValues(kind).Inc()
}

func outcomeLabel(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "blocked"
}

// mustJSON сериализует detail для аудита. Значения приходят из нашего же кода,
// ошибка маршалинга здесь означает баг, а не условие рантайма.
func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
