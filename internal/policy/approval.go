package policy

import (
	"encoding/json"
	"fmt"
)

// ApprovalResult — итог проверки "нужен ли Human-in-the-loop".
type ApprovalResult struct {
	RequiresApproval bool     `json:"requires_approval"`
	Reasons          []string `json:"reasons"`
}

// EvaluateApprovalPolicies решает, требует ли разрешенное действие
// человеческого подтверждения. Rule-set срабатывает, когда удовлетворено
// каждое объявленное им непустое ограничение; пустой список — wildcard.
// Пустые toolName/role означают "значение отсутствует".
func EvaluateApprovalPolicies(actionType, toolName, role string, ruleSets []json.RawMessage) ApprovalResult {
	reasons := make([]string, 0)

	for _, raw := range ruleSets {
		rules := decodeRules(raw)

		requiredActions := rules.strings("actionTypes")
		requiredTools := rules.strings("toolNames")
		requiredRoles := rules.strings("rolesRequiringApproval")

		actionMatched := len(requiredActions) == 0 || containsString(requiredActions, actionType)
		toolMatched := len(requiredTools) == 0 ||
			(toolName != "" && containsString(requiredTools, toolName))
		roleMatched := len(requiredRoles) == 0 ||
			(role != "" && containsString(requiredRoles, role))

		if actionMatched && toolMatched && roleMatched {
			toolLabel := toolName
			if toolLabel == "" {
				toolLabel = "none"
			}
			roleLabel := role
			if roleLabel == "" {
				roleLabel = "unknown"
			}
			reasons = append(reasons, fmt.Sprintf(
				"approval_policy_matched:action=%s:tool=%s:role=%s",
				actionType, toolLabel, roleLabel,
			))
		}
	}

	return ApprovalResult{
		RequiresApproval: len(reasons) > 0,
		Reasons:          reasons,
	}
}
