package audit

/*
Файл trail.go реализует асинхронный аудиторский след (Audit Trail).

Ключевые особенности архитектуры:
- Non-blocking Append: запись уходит в буферизованный канал, Hot Path ядра
  не ждет Postgres. Задержки БД не влияют на Response Time решений.
- Batching: события копятся в памяти и пишутся пачкой (Bulk Insert)
  по таймеру или при достижении лимита.
- Drain Pattern & Graceful Shutdown: при остановке канал запирается,
  воркер вычитает остатки и делает финальный flush — записи не теряются
  при штатной перезагрузке.
- Load Shedding: при переполнении буфера событие уходит в zap, чтобы след
  не рвался молча.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически сохраняются записи
type StorageInterface interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, entries []AuditEntry) error
}

// Sink — контракт ядра на добавление записи. Fire-and-forget:
// возвращаемая запись уже содержит ID и таймстемп, но ее персистентность
// гарантируется только после flush.
type Sink interface {
	Append(actorID string, actorType ActorType, action, detail string, costTokens int) AuditEntry
}

// BufferGauge позволяет отдать заполненность буфера в метрики,
// не затягивая prometheus в этот пакет.
type BufferGauge interface {
	Set(float64)
}

type Trail struct {
	ch     chan AuditEntry
	repo   StorageInterface
	logger *zap.Logger
	gauge  BufferGauge
	wg     sync.WaitGroup

	batchSize     int
	flushInterval time.Duration

	// Атомарный флаг (0 - открыт, 1 - закрыт): защита от Append после Stop
	isClosed int32
}

func NewTrail(repo StorageInterface, logger *zap.Logger, gauge BufferGauge, bufferSize, batchSize int, flushInterval time.Duration) *Trail {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	return &Trail{
		ch:            make(chan AuditEntry, bufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "audit-trail")),
		gauge:         gauge,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

func (t *Trail) Start() {
	t.wg.Add(1)
	go t.worker()
}

// Stop запирает вход в канал и ждет, пока воркер допишет остатки.
func (t *Trail) Stop() {
	atomic.StoreInt32(&t.isClosed, 1)

	// Крошечная пауза, чтобы конкурентные Append успели проскочить до close
	time.Sleep(10 * time.Millisecond)

	t.logger.Info("stopping audit trail: closing channel and flushing buffer...")
	close(t.ch)
	t.wg.Wait()
	t.logger.Info("audit trail stopped gracefully")
}

// Append формирует запись и ставит ее в очередь на запись.
func (t *Trail) Append(actorID string, actorType ActorType, action, detail string, costTokens int) AuditEntry {
	if costTokens < 0 {
		costTokens = 0
	}
	entry := AuditEntry{
		ID:         uuid.New().String(),
		ActorID:    actorID,
		ActorType:  actorType,
		Action:     action,
		Detail:     detail,
		CostTokens: costTokens,
		CreatedAt:  time.Now().UTC(),
	}

	if atomic.LoadInt32(&t.isClosed) == 1 {
		t.logger.Warn("audit entry dropped: trail is stopping", zap.String("action", action))
		return entry
	}

	// Load Shedding: переполненный буфер не должен блокировать решение
	select {
	case t.ch <- entry:
		if t.gauge != nil {
			t.gauge.Set(float64(len(t.ch)))
		}
	default:
		t.logger.Error("audit_buffer_overflow",
			zap.String("actor_id", actorID),
			zap.String("action", action),
		)
	}

	return entry
}

func (t *Trail) worker() {
	defer t.wg.Done()

	batch := make([]AuditEntry, 0, t.batchSize)
	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст на shutdown может быть уже закрыт
		if err := t.repo.WriteBatch(context.Background(), batch); err != nil {
			t.logger.Error("audit flush failed", zap.Error(err))
		}
		batch = batch[:0]
		if t.gauge != nil {
			t.gauge.Set(float64(len(t.ch)))
		}
	}

	for {
		select {
		case entry, ok := <-t.ch:
			if !ok {
				// Канал закрыт в Stop(): вычитали всё — финальный сброс и выход
				flush()
				t.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, entry)
			if len(batch) >= t.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
