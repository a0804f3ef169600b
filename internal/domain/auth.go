package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims — полезная нагрузка RS256 токена.
// Из нее на каждый запрос собирается Principal.
type CustomClaims struct {
	AgentID string `json:"agent_id,omitempty"`
	Role    string `json:"role,omitempty"` // admin / member / viewer
	jwt.RegisteredClaims
}

// Principal строит идентичность запроса из клеймов токена.
func (c *CustomClaims) Principal() Principal {
	agentID := c.AgentID
	if agentID == "" {
		agentID = c.Subject
	}
	return Principal{AgentID: agentID, Role: c.Role}
}

// Secure Token Issuing
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`
}
