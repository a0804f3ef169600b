package audit

import "time"

// ActorType различает людей-операторов и агентов
type ActorType string

const (
	ActorUser  ActorType = "user"
	ActorAgent ActorType = "agent"
)

// AuditEntry — одна запись аудиторского следа. Append-only: записи никогда
// не обновляются и не удаляются. Каждое решение ядра порождает минимум одну
// запись, и запись всегда пишется после того, как решение вступило в силу.
type AuditEntry struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorType  ActorType `json:"actor_type"`
	Action     string    `json:"action"` // Dotted-строка, напр. "policy.tool.blocked"
	Detail     string    `json:"detail"` // Сериализованный контекст решения
	CostTokens int       `json:"cost_tokens"`
	CreatedAt  time.Time `json:"created_at"`
}
