package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/agentgov/internal/audit"
	"github.com/xela07ax/agentgov/internal/gateway"
	"github.com/xela07ax/agentgov/internal/governance"
	"github.com/xela07ax/agentgov/internal/infra"
	"github.com/xela07ax/agentgov/internal/infra/auth"
	"github.com/xela07ax/agentgov/internal/policy"
	"github.com/xela07ax/agentgov/internal/repository/postgres"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Database.URL == "" {
		logger.Fatal("database.url (or DATABASE_URL env) is required")
	}

	// Контекст жизненного цикла фоновых горутин: SIGTERM остановит слушателей
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	store, err := postgres.NewStore(appCtx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal("failed to init postgres", zap.Error(err))
	}
	defer store.Close()

	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	pingCancel()

	auditRepo, err := postgres.NewAuditRepo(cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to init audit storage", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 3. Ключи RS256
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse public key", zap.Error(err))
	}
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("failed to parse private key", zap.Error(err))
	}

	// 4. Метрики
	reg := prometheus.NewRegistry()
	metrics := governance.NewMetrics(reg)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		logger.Info("metrics exporter started", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics exporter stopped", zap.Error(err))
		}
	}()

	// 5. Аудиторский след: ретраи + CB вокруг Postgres, асинхронная запись
	trail := audit.NewTrail(
		audit.NewReliableStorage(auditRepo),
		logger,
		metrics.AuditBufferFill,
		cfg.Governance.AuditBufferSize,
		cfg.Governance.AuditBatchSize,
		cfg.Governance.AuditFlushInterval,
	)
	trail.Start()

	// 6. Кэш политик: холодная загрузка + подписка на инвалидацию
	policyCache := policy.NewMemoCache(store, rdb, logger)
	if err := policyCache.Refresh(appCtx); err != nil {
		logger.Fatal("failed to warm up policy cache", zap.Error(err))
	}
	go policyCache.StartListener(appCtx, infra.RedisChanPolicyUpdate)

	// 7. Сборка ядра (Dependency Injection, без глобального состояния)
	engine := governance.NewEngine(policyCache, store, trail, logger, metrics)

	// 8. HTTP-граница
	validator := auth.NewBaseValidator(publicKey)
	tokens := gateway.NewTokenIssuer(cfg.Auth.Operators, privateKey, cfg.Auth.TokenTTL)
	server := gateway.NewServer(cfg.Governance, logger, engine, store, auditRepo, tokens, validator)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("governance gateway started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("governance gateway stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	cancel()      // Останавливаем слушателей
	trail.Stop()  // Финальный flush следа
	logger.Info("governance gateway exited properly")
}
