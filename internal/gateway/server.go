package gateway

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/agentgov/internal/audit"
	"github.com/xela07ax/agentgov/internal/domain"
	"github.com/xela07ax/agentgov/internal/governance"
	"github.com/xela07ax/agentgov/internal/infra"
	"github.com/xela07ax/agentgov/internal/infra/auth"
)

// ApprovalReader — чтения для очереди операторов (Decision Queue).
type ApprovalReader interface {
	GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	FindByState(ctx context.Context, state domain.ApprovalState) ([]*domain.ApprovalRequest, error)
}

// AuditReader — чтение аудиторского следа с фильтрацией.
type AuditReader interface {
	FetchEntries(ctx context.Context, actorID, actionPrefix string, limit int) ([]audit.AuditEntry, error)
}

// Server — HTTP-граница ядра. Тонкий слой: аутентификация, разбор запроса,
// маппинг ошибок в статус-коды. Вся логика решений — в governance.Engine.
type Server struct {
	router *chi.Mux
	logger *zap.Logger

	engine    *governance.Engine
	approvals ApprovalReader
	auditLog  AuditReader
	tokens    *TokenIssuer
	validator auth.TokenValidator
	limiter   *rate.Limiter
}

func NewServer(
	cfg infra.GovernanceConfig,
	logger *zap.Logger,
	engine *governance.Engine,
	approvals ApprovalReader,
	auditLog AuditReader,
	tokens *TokenIssuer,
	validator auth.TokenValidator,
) *Server {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 100
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}

	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.Named("gateway"),
		engine:    engine,
		approvals: approvals,
		auditLog:  auditLog,
		tokens:    tokens,
		validator: validator,
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TracingMiddleware)

	// --- 2. Публичные роуты ---
	r.Group(func(r chi.Router) {
		r.Post("/auth/token", s.handleLogin)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. Защищенный периметр (RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.limiter))
		r.Use(auth.NewMiddleware(s.validator, s.logger))

		// Фильтрация контента сообщений (путь независим от tool-call)
		r.Post("/v1/content/evaluate", s.handleEvaluateContent)

		// Полный пайплайн tool-call: restriction -> approval -> HITL
		r.Post("/v1/tools/evaluate", s.handleEvaluateToolCall)
		r.Post("/v1/tools/result", s.handleRecordToolResult)

		// Консультативная сводка ограничений (out-of-band)
		r.Get("/v1/constraints", s.handleQueryConstraints)

		// Human-in-the-loop (Approvals)
		r.Route("/v1/approvals", func(r chi.Router) {
			r.Get("/", s.handleListApprovals) // Очередь заявок
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetApproval)
				r.Post("/decide", s.handleDecideApproval)
			})
		})

		// Аудит (Observability)
		r.Get("/v1/audit", s.handleFetchAudit)
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
