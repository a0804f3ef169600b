package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/agentgov/internal/audit"
)

// AuditRepo пишет аудиторский след пачками. Отдельное соединение через
// database/sql: пакетные вставки живут своим пулом и не конкурируют
// с Hot Path чтений политик.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(connString string) (*AuditRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open audit connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &AuditRepo{db: db}, nil
}

func (r *AuditRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WriteBatch сохраняет пачку записей одним INSERT.
// Таблица append-only: никаких UPDATE/DELETE по audit_entries в кодовой базе нет.
func (r *AuditRepo) WriteBatch(ctx context.Context, entries []audit.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	// Количество колонок в таблице audit_entries
	numFields := 7
	placeholderStr := ""
	vals := make([]interface{}, 0, len(entries)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range entries {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7)

		vals = append(vals,
			e.ID, e.ActorID, string(e.ActorType), e.Action,
			e.Detail, e.CostTokens, e.CreatedAt,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO audit_entries (id, actor_id, actor_type, action, detail, cost_tokens, created_at) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.db.ExecContext(ctx, query, vals...)
	return err
}

// FetchEntries — чтение следа с фильтрацией для операторов.
// actorID и actionPrefix опциональны (пустая строка — без фильтра).
func (r *AuditRepo) FetchEntries(ctx context.Context, actorID, actionPrefix string, limit int) ([]audit.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, actor_id, actor_type, action, detail, cost_tokens, created_at FROM audit_entries`
	var conds []string
	var args []interface{}

	if actorID != "" {
		args = append(args, actorID)
		conds = append(conds, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if actionPrefix != "" {
		args = append(args, actionPrefix+"%")
		conds = append(conds, fmt.Sprintf("action LIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query audit entries: %w", err)
	}
	defer rows.Close()

	results := make([]audit.AuditEntry, 0)
	for rows.Next() {
		var e audit.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorType, &e.Action, &e.Detail, &e.CostTokens, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit entry: %w", err)
		}
		results = append(results, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}

	return results, nil
}
