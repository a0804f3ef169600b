package postgres

/*
Файл approval_repo.go содержит хранилище заявок Human-in-the-loop.
Единственная операция, требующая координации — UpdateStateIfPending:
условие WHERE state = 'pending' гарантирует, что из двух конкурентных
решений по одной заявке применится ровно одно (Double Decision исключен).
*/

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/agentgov/internal/domain"
)

const approvalColumns = `id, agent_id, action_type, params, state, requested_at, decided_by`

// Create заводит заявку в начальном статусе pending.
// Уникальность не требуется: дубликаты pending-заявок на одно действие допустимы.
func (s *Store) Create(ctx context.Context, agentID, actionType string, params map[string]interface{}) (*domain.ApprovalRequest, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal approval params: %w", err)
	}

	query := `
		INSERT INTO approval_requests (id, agent_id, action_type, params, state, requested_at)
		VALUES (gen_random_uuid(), $1, $2, $3, 'pending', NOW())
		RETURNING ` + approvalColumns

	row := s.pool.QueryRow(ctx, query, agentID, actionType, paramsJSON)
	app, err := scanApproval(row)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create approval request: %w", err)
	}
	return app, nil
}

// GetByID — получение деталей заявки для анализа.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id = $1`

	app, err := scanApproval(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("approval %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: failed to fetch approval: %w", err)
	}
	return app, nil
}

// UpdateStateIfPending атомарно переводит заявку из pending в терминальный статус.
// RETURNING позволяет получить итоговую строку за один проход, без
// предварительного SELECT (исключаем Race Condition между проверкой и записью).
// Ноль затронутых строк означает, что решение по заявке уже принято ранее —
// существование ID вызывающий код проверяет до апдейта.
func (s *Store) UpdateStateIfPending(ctx context.Context, id string, newState domain.ApprovalState, deciderID string) (*domain.ApprovalRequest, error) {
	query := `
		UPDATE approval_requests
		SET state = $1,
		    decided_by = $2
		WHERE id = $3 AND state = 'pending'
		RETURNING ` + approvalColumns

	app, err := scanApproval(s.pool.QueryRow(ctx, query, string(newState), deciderID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("approval %s already decided: %w", id, domain.ErrConflict)
		}
		return nil, fmt.Errorf("postgres: failed to update approval state: %w", err)
	}
	return app, nil
}

// FindByState — выборка очереди заявок для операторов (Decision Queue).
func (s *Store) FindByState(ctx context.Context, state domain.ApprovalState) ([]*domain.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests`

	var args []interface{}
	if state != "" {
		query += ` WHERE state = $1`
		args = append(args, string(state))
	}
	query += ` ORDER BY requested_at DESC LIMIT 100`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query approvals: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.ApprovalRequest, 0)
	for rows.Next() {
		app, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan approval: %w", err)
		}
		results = append(results, app)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}

	return results, nil
}

func scanApproval(row pgx.Row) (*domain.ApprovalRequest, error) {
	var app domain.ApprovalRequest
	var paramsJSON []byte
	var decidedBy sql.NullString // NULL, пока заявка не решена

	err := row.Scan(
		&app.ID,
		&app.AgentID,
		&app.ActionType,
		&paramsJSON,
		&app.State,
		&app.RequestedAt,
		&decidedBy,
	)
	if err != nil {
		return nil, err
	}

	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &app.Params); err != nil {
			return nil, fmt.Errorf("unmarshal approval params: %w", err)
		}
	}
	if decidedBy.Valid {
		val := decidedBy.String
		app.DecidedBy = &val
	}

	return &app, nil
}
