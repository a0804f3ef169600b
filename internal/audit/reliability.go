package audit

import (
	"context"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
)

// ReliableStorage оборачивает физическое хранилище следа в ретраи
// и Circuit Breaker. Живет целиком на фоновом пути flush'а: ядро решений
// ретраев не делает, а вот пачку аудита терять из-за моргнувшей БД не хочется.
type ReliableStorage struct {
	next StorageInterface
	cb   *gobreaker.CircuitBreaker
}

func NewReliableStorage(next StorageInterface) *ReliableStorage {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit-storage",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &ReliableStorage{next: next, cb: cb}
}

func (w *ReliableStorage) WriteBatch(ctx context.Context, entries []AuditEntry) error {
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return w.next.WriteBatch(tCtx, entries)
		})

		return nil, retryErr
	})
	return err
}
