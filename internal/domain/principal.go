package domain

// Роли операторов и агентов. Пустая строка означает "роль не задана" (anonymous).
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Principal — идентичность, от имени которой оценивается действие.
// Не персистится: собирается на каждый запрос из claims токена.
type Principal struct {
	AgentID string `json:"agent_id"`
	Role    string `json:"role,omitempty"` // "" — роль отсутствует
}

// RoleLabel возвращает человекочитаемую метку роли для reasons и scope notes.
func (p Principal) RoleLabel() string {
	if p.Role == "" {
		return "anonymous"
	}
	return p.Role
}
