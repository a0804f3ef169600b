package domain

import (
	"encoding/json"
	"time"
)

// PolicyCategory определяет, каким алгоритмом интерпретируется rules_json
type PolicyCategory string

const (
	CategoryContentFilter    PolicyCategory = "content_filter"    // Фильтрация текста (blocked terms + PII)
	CategoryToolRestriction  PolicyCategory = "tool_restriction"  // Allow/Deny списки инструментов
	CategoryApprovalRequired PolicyCategory = "approval_required" // Условия для Human-in-the-loop
)

// Policy — правило безопасности, задаваемое через внешнюю админку.
// Для ядра политики read-only: мы их только читаем и исполняем.
// Несколько включенных политик одной категории равноправны — эффекты складываются.
type Policy struct {
	ID       string         `json:"id"`
	Category PolicyCategory `json:"category"`

	// Rules — сырой JSON, форма зависит от Category.
	// Разбор выполняется защищенно (см. пакет policy): битые поля
	// деградируют до дефолтов, а не роняют проверку.
	Rules json.RawMessage `json:"rules"`

	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
