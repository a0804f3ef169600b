package domain

// ConstraintExpression — агрегированная сводка ограничений для принципала.
// Производная структура, не персистится; используется для брифинга агента
// перед действием (out-of-band, вне пути принятия решения).
// Все списки дедуплицированы и отсортированы по возрастанию.
type ConstraintExpression struct {
	AllowedTools     []string `json:"allowed_tools"`
	ForbiddenTools   []string `json:"forbidden_tools"`
	RequiresApproval []string `json:"requires_approval"`
	ScopeNote        string   `json:"scope_note"`
}
