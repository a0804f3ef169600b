package policy

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/agentgov/internal/domain"
)

// Source — требования кэша к постоянному хранилищу политик.
type Source interface {
	ListEnabled(ctx context.Context, category domain.PolicyCategory) ([]domain.Policy, error)
}

var cachedCategories = []domain.PolicyCategory{
	domain.CategoryContentFilter,
	domain.CategoryToolRestriction,
	domain.CategoryApprovalRequired,
}

// MemoCache — in-memory кэш включенных политик. В рантайме Hot Path ядра
// читает только RAM; с Postgres кэш синхронизируется при старте (Refresh)
// и по сигналу из Redis, когда админка меняет политики.
// Staleness в несколько миллисекунд допустима: политики меняются редко.
type MemoCache struct {
	mu         sync.RWMutex
	byCategory map[domain.PolicyCategory][]domain.Policy
	warm       bool

	repo   Source
	rdb    *redis.Client
	logger *zap.Logger
}

func NewMemoCache(repo Source, rdb *redis.Client, logger *zap.Logger) *MemoCache {
	return &MemoCache{
		byCategory: make(map[domain.PolicyCategory][]domain.Policy),
		repo:       repo,
		rdb:        rdb,
		logger:     logger.Named("policy-cache"),
	}
}

// ListEnabled реализует тот же контракт, что и Postgres-репозиторий,
// поэтому ядро не знает, читает оно RAM или БД.
// До первого успешного Refresh запросы идут напрямую в хранилище.
func (c *MemoCache) ListEnabled(ctx context.Context, category domain.PolicyCategory) ([]domain.Policy, error) {
	c.mu.RLock()
	if c.warm {
		cached := c.byCategory[category]
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	return c.repo.ListEnabled(ctx, category)
}

// Refresh выполняет холодную загрузку всех категорий из Postgres.
// Мапа заменяется целиком, чтобы читатели никогда не видели частичное состояние.
func (c *MemoCache) Refresh(ctx context.Context) error {
	fresh := make(map[domain.PolicyCategory][]domain.Policy, len(cachedCategories))
	total := 0
	for _, category := range cachedCategories {
		items, err := c.repo.ListEnabled(ctx, category)
		if err != nil {
			return err
		}
		fresh[category] = items
		total += len(items)
	}

	c.mu.Lock()
	c.byCategory = fresh
	c.warm = true
	c.mu.Unlock()

	c.logger.Info("policy cache refreshed", zap.Int("count", total))
	return nil
}

// StartListener — "живучая" подписка на сигнал обновления политик.
// Переподписывается при обрывах; на каждый reconnect и на каждое сообщение
// перечитывает весь набор (сигнал — это просто "refresh", без дельт).
func (c *MemoCache) StartListener(ctx context.Context, channel string) {
	for {
		pubsub := c.rdb.Subscribe(ctx, channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			c.logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			pubsub.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// Синхронизация при каждом успешном коннекте: пока мы были
		// отключены, политики могли измениться
		if err := c.Refresh(ctx); err != nil {
			c.logger.Error("sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case _, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				if err := c.Refresh(ctx); err != nil {
					c.logger.Error("policy cache refresh failed", zap.Error(err))
				}
			}
		}

		pubsub.Close()
		time.Sleep(time.Second)
	}
}
