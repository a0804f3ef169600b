package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xela07ax/agentgov/internal/domain"
)

// AggregateConstraints сводит все применимые tool_restriction и
// approval_required политики в одну консультативную структуру.
// Вызывается out-of-band (не на пути принятия решения): агент получает
// сводку ограничений до того, как начнет действовать.
func AggregateConstraints(principal domain.Principal, actionType string, toolPolicies, approvalPolicies []domain.Policy) domain.ConstraintExpression {
	allowedTools := make(map[string]struct{})
	forbiddenTools := make(map[string]struct{})

	for _, p := range toolPolicies {
		rules := decodeRules(p.Rules)
		// Политика с чужим role-scope пропускается целиком
		if !appliesToRole(rules, "rolesAllowed", principal.Role) {
			continue
		}
		for _, tool := range rules.strings("allowTools") {
			allowedTools[tool] = struct{}{}
		}
		for _, tool := range rules.strings("denyTools") {
			forbiddenTools[tool] = struct{}{}
		}
	}

	requiresApproval := make(map[string]struct{})

	for _, p := range approvalPolicies {
		rules := decodeRules(p.Rules)
		if !appliesToRole(rules, "rolesRequiringApproval", principal.Role) {
			continue
		}

		actionTypes := rules.strings("actionTypes")
		if len(actionTypes) > 0 && !containsString(actionTypes, actionType) {
			continue
		}

		// Конкретные инструменты, если они перечислены; иначе сам action type
		toolNames := rules.strings("toolNames")
		if len(toolNames) > 0 {
			for _, tool := range toolNames {
				requiresApproval[tool] = struct{}{}
			}
		} else {
			requiresApproval[actionType] = struct{}{}
		}
	}

	allowedList := uniqueSorted(allowedTools)
	forbiddenList := uniqueSorted(forbiddenTools)
	approvalList := uniqueSorted(requiresApproval)

	return domain.ConstraintExpression{
		AllowedTools:     allowedList,
		ForbiddenTools:   forbiddenList,
		RequiresApproval: approvalList,
		ScopeNote: fmt.Sprintf("Role: %s. Restricted: %s. Approval required: %s.",
			principal.RoleLabel(), listLabel(forbiddenList), listLabel(approvalList)),
	}
}

// appliesToRole: пустой role-scope означает "для всех".
func appliesToRole(rules ruleMap, key, role string) bool {
	roles := rules.strings(key)
	if len(roles) == 0 {
		return true
	}
	return role != "" && containsString(roles, role)
}

func uniqueSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func listLabel(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
