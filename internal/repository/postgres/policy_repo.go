package postgres

/*
Файл policy_repo.go — поставка правил безопасности (Policies) в ядро.
Для ядра политики строго read-only: создает и редактирует их внешняя
админка, мы только читаем включенные.
*/

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/agentgov/internal/domain"
)

// ListEnabled возвращает все включенные политики запрошенной категории.
// Чистое чтение без блокировок: небольшая staleness между fetch и
// использованием допустима.
func (s *Store) ListEnabled(ctx context.Context, category domain.PolicyCategory) ([]domain.Policy, error) {
	query := `
		SELECT id, category, rules_json, enabled, created_at, updated_at
		FROM policies
		WHERE enabled = TRUE AND category = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, string(category))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query policies: %w", err)
	}
	defer rows.Close()

	// Пустой слайс вместо nil, чтобы в JSON был [] вместо null
	results := make([]domain.Policy, 0)

	for rows.Next() {
		var p domain.Policy
		var rules []byte
		if err := rows.Scan(&p.ID, &p.Category, &rules, &p.Enabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan policy: %w", err)
		}
		p.Rules = json.RawMessage(rules)
		results = append(results, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}

	return results, nil
}
