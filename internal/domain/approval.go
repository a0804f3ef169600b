package domain

import "time"

// Статусы State Machine заявок на подтверждение
type ApprovalState string

const (
	StatePending  ApprovalState = "pending"
	StateApproved ApprovalState = "approved"
	StateRejected ApprovalState = "rejected"
	StateExpired  ApprovalState = "expired"
)

// ApprovalRequest — заявка Human-in-the-loop. Создается ядром только в статусе
// pending и решается ровно один раз: терминальные статусы неизменяемы.
type ApprovalRequest struct {
	ID         string                 `json:"id"`
	AgentID    string                 `json:"agent_id"`
	ActionType string                 `json:"action_type"`
	Params     map[string]interface{} `json:"params"` // Всегда содержит toolName, вызвавший заявку

	State       ApprovalState `json:"state"`
	RequestedAt time.Time     `json:"requested_at"`
	DecidedBy   *string       `json:"decided_by,omitempty"` // ID принципала, принявшего решение
}

// CanTransition проверяет правила конечного автомата.
// Разрешен единственный вид перехода: pending -> терминальный статус.
// pending -> pending тоже запрещен: no-op решение — это ошибка, а не успех.
func CanTransition(from, to ApprovalState) bool {
	if from != StatePending {
		return false
	}
	return to == StateApproved || to == StateRejected || to == StateExpired
}

// IsTerminal сообщает, что по заявке уже нельзя принять решение.
func (s ApprovalState) IsTerminal() bool {
	return s == StateApproved || s == StateRejected || s == StateExpired
}
