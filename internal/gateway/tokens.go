package gateway

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/xela07ax/agentgov/internal/domain"
	"github.com/xela07ax/agentgov/internal/infra"
)

// TokenIssuer выпускает RS256 токены для операторов HITL.
// Учетки статические, из конфига: CRUD пользователей живет во внешней
// админке и в ядро не входит.
type TokenIssuer struct {
	operators  []infra.Operator
	privateKey *rsa.PrivateKey
	ttl        time.Duration
}

func NewTokenIssuer(operators []infra.Operator, privateKey *rsa.PrivateKey, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		operators:  operators,
		privateKey: privateKey,
		ttl:        ttl,
	}
}

// Issue аутентифицирует оператора и подписывает токен закрытым ключом.
func (t *TokenIssuer) Issue(username, password string) (*domain.TokenResponse, error) {
	var op *infra.Operator
	for i := range t.operators {
		if t.operators[i].Username == username {
			op = &t.operators[i]
			break
		}
	}
	if op == nil {
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	expiresAt := time.Now().Add(t.ttl)
	claims := &domain.CustomClaims{
		Role: op.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "agentgov",
			Subject:   op.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(t.privateKey)
	if err != nil {
		return nil, err
	}

	return &domain.TokenResponse{
		AccessToken: signedToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}
