package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateApprovalPolicies_FullMatch(t *testing.T) {
	result := EvaluateApprovalPolicies("tool_call", "wire_transfer", "member", []json.RawMessage{
		rawRules(t, `{
			"actionTypes": ["tool_call"],
			"toolNames": ["wire_transfer"],
			"rolesRequiringApproval": ["member", "viewer"]
		}`),
	})

	assert.True(t, result.RequiresApproval)
	assert.Equal(t, []string{"approval_policy_matched:action=tool_call:tool=wire_transfer:role=member"}, result.Reasons)
}

func TestEvaluateApprovalPolicies_EmptyListsAreWildcards(t *testing.T) {
	result := EvaluateApprovalPolicies("tool_call", "search", "admin", []json.RawMessage{
		rawRules(t, `{}`),
	})

	assert.True(t, result.RequiresApproval)
}

func TestEvaluateApprovalPolicies_ToolMismatch(t *testing.T) {
	result := EvaluateApprovalPolicies("tool_call", "search", "member", []json.RawMessage{
		rawRules(t, `{"toolNames": ["wire_transfer"]}`),
	})

	assert.False(t, result.RequiresApproval)
	assert.Empty(t, result.Reasons)
}

func TestEvaluateApprovalPolicies_ConstraintNeedsPresentValue(t *testing.T) {
	// Непустой toolNames требует присутствующий tool: отсутствующий не матчится
	result := EvaluateApprovalPolicies("tool_call", "", "member", []json.RawMessage{
		rawRules(t, `{"toolNames": ["wire_transfer"]}`),
	})
	assert.False(t, result.RequiresApproval)

	// То же для роли
	noRole := EvaluateApprovalPolicies("tool_call", "wire_transfer", "", []json.RawMessage{
		rawRules(t, `{"rolesRequiringApproval": ["member"]}`),
	})
	assert.False(t, noRole.RequiresApproval)
}

func TestEvaluateApprovalPolicies_AbsentValueLabels(t *testing.T) {
	result := EvaluateApprovalPolicies("maintenance", "", "", []json.RawMessage{
		rawRules(t, `{"actionTypes": ["maintenance"]}`),
	})

	assert.True(t, result.RequiresApproval)
	assert.Equal(t, []string{"approval_policy_matched:action=maintenance:tool=none:role=unknown"}, result.Reasons)
}

func TestEvaluateApprovalPolicies_EveryMatchingRuleSetReported(t *testing.T) {
	ruleSets := []json.RawMessage{
		rawRules(t, `{"actionTypes": ["tool_call"]}`),
		rawRules(t, `{"toolNames": ["wire_transfer"]}`),
		rawRules(t, `{"actionTypes": ["other_action"]}`),
	}

	result := EvaluateApprovalPolicies("tool_call", "wire_transfer", "member", ruleSets)

	assert.True(t, result.RequiresApproval)
	assert.Len(t, result.Reasons, 2)
}
