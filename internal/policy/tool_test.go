package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateToolPolicies_DenyTakesEffect(t *testing.T) {
	result := EvaluateToolPolicies("wire_transfer", "member", []json.RawMessage{
		rawRules(t, `{"denyTools": ["wire_transfer"]}`),
	})

	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reasons, "tool_denied:wire_transfer")
}

func TestEvaluateToolPolicies_Allowlist(t *testing.T) {
	ruleSets := []json.RawMessage{
		rawRules(t, `{"allowTools": ["search", "summarize"]}`),
	}

	allowed := EvaluateToolPolicies("search", "member", ruleSets)
	assert.True(t, allowed.Allowed)

	denied := EvaluateToolPolicies("delete_records", "member", ruleSets)
	assert.False(t, denied.Allowed)
	assert.Contains(t, denied.Reasons, "tool_not_allowlisted:delete_records")
}

func TestEvaluateToolPolicies_RoleRestriction(t *testing.T) {
	ruleSets := []json.RawMessage{
		rawRules(t, `{"rolesAllowed": ["admin", "member"]}`),
	}

	result := EvaluateToolPolicies("search", "viewer", ruleSets)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reasons, "role_not_allowed:viewer")
}

func TestEvaluateToolPolicies_AbsentRoleIsAnonymous(t *testing.T) {
	result := EvaluateToolPolicies("search", "", []json.RawMessage{
		rawRules(t, `{"rolesAllowed": ["admin"]}`),
	})

	assert.Contains(t, result.Reasons, "role_not_allowed:anonymous")
}

func TestEvaluateToolPolicies_AllRuleSetsContribute(t *testing.T) {
	// Без short-circuit: каждый rule-set вносит свой reason независимо
	ruleSets := []json.RawMessage{
		rawRules(t, `{"denyTools": ["wire_transfer"]}`),
		rawRules(t, `{"allowTools": ["search"]}`),
		rawRules(t, `{"rolesAllowed": ["admin"]}`),
	}

	result := EvaluateToolPolicies("wire_transfer", "viewer", ruleSets)

	assert.False(t, result.Allowed)
	assert.Equal(t, []string{
		"tool_denied:wire_transfer",
		"tool_not_allowlisted:wire_transfer",
		"role_not_allowed:viewer",
	}, result.Reasons)
}

func TestEvaluateToolPolicies_EmptyRuleSetsAllow(t *testing.T) {
	result := EvaluateToolPolicies("anything", "viewer", nil)
	assert.True(t, result.Allowed)
	assert.Empty(t, result.Reasons)
}
