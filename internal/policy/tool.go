package policy

import "encoding/json"

// ToolResult — итог проверки вызова инструмента по tool_restriction политикам.
type ToolResult struct {
	Allowed bool     `json:"allowed"`
	Reasons []string `json:"reasons"`
}

// EvaluateToolPolicies проверяет инструмент против каждого rule-set независимо.
// Deny имеет приоритет в том смысле, что любой reason делает Allowed=false;
// сами списки не схлопываются и не short-circuit'ятся — reasons копятся от всех политик.
// Пустая role означает анонимного принципала.
func EvaluateToolPolicies(toolName, role string, ruleSets []json.RawMessage) ToolResult {
	reasons := make([]string, 0)

	for _, raw := range ruleSets {
		rules := decodeRules(raw)

		allowTools := rules.strings("allowTools")
		denyTools := rules.strings("denyTools")
		rolesAllowed := rules.strings("rolesAllowed")

		if containsString(denyTools, toolName) {
			reasons = append(reasons, "tool_denied:"+toolName)
		}

		// Непустой allow-список работает как whitelist
		if len(allowTools) > 0 && !containsString(allowTools, toolName) {
			reasons = append(reasons, "tool_not_allowlisted:"+toolName)
		}

		if len(rolesAllowed) > 0 && (role == "" || !containsString(rolesAllowed, role)) {
			label := role
			if label == "" {
				label = "anonymous"
			}
			reasons = append(reasons, "role_not_allowed:"+label)
		}
	}

	return ToolResult{
		Allowed: len(reasons) == 0,
		Reasons: reasons,
	}
}
