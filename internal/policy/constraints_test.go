package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xela07ax/agentgov/internal/domain"
)

func toolPolicy(t *testing.T, rules string) domain.Policy {
	t.Helper()
	return domain.Policy{
		Category: domain.CategoryToolRestriction,
		Rules:    rawRules(t, rules),
		Enabled:  true,
	}
}

func approvalPolicy(t *testing.T, rules string) domain.Policy {
	t.Helper()
	return domain.Policy{
		Category: domain.CategoryApprovalRequired,
		Rules:    rawRules(t, rules),
		Enabled:  true,
	}
}

func TestAggregateConstraints_UnionDeduplicatedSorted(t *testing.T) {
	principal := domain.Principal{AgentID: "agent-1", Role: domain.RoleMember}

	toolPolicies := []domain.Policy{
		toolPolicy(t, `{"allowTools": ["search", "browse"], "denyTools": ["wire_transfer"]}`),
		toolPolicy(t, `{"allowTools": ["browse", "archive"], "denyTools": ["wire_transfer", "delete_records"]}`),
	}
	approvalPolicies := []domain.Policy{
		approvalPolicy(t, `{"toolNames": ["wire_transfer", "delete_records"]}`),
		approvalPolicy(t, `{"toolNames": ["delete_records"]}`),
	}

	expr := AggregateConstraints(principal, "tool_call", toolPolicies, approvalPolicies)

	assert.Equal(t, []string{"archive", "browse", "search"}, expr.AllowedTools)
	assert.Equal(t, []string{"delete_records", "wire_transfer"}, expr.ForbiddenTools)
	assert.Equal(t, []string{"delete_records", "wire_transfer"}, expr.RequiresApproval)
	assert.Equal(t,
		"Role: member. Restricted: delete_records, wire_transfer. Approval required: delete_records, wire_transfer.",
		expr.ScopeNote)
}

func TestAggregateConstraints_RoleScopeSkipsPolicies(t *testing.T) {
	principal := domain.Principal{AgentID: "agent-1", Role: domain.RoleViewer}

	toolPolicies := []domain.Policy{
		toolPolicy(t, `{"denyTools": ["admin_only_tool"], "rolesAllowed": ["admin"]}`),
		toolPolicy(t, `{"denyTools": ["everyone_tool"]}`),
	}
	approvalPolicies := []domain.Policy{
		approvalPolicy(t, `{"toolNames": ["deploy"], "rolesRequiringApproval": ["admin"]}`),
	}

	expr := AggregateConstraints(principal, "tool_call", toolPolicies, approvalPolicies)

	// Политика со scope под admin игнорируется целиком для viewer
	assert.Equal(t, []string{"everyone_tool"}, expr.ForbiddenTools)
	assert.Empty(t, expr.RequiresApproval)
}

func TestAggregateConstraints_ActionTypeFallback(t *testing.T) {
	principal := domain.Principal{AgentID: "agent-1"}

	approvalPolicies := []domain.Policy{
		// Без toolNames в requiresApproval попадает сам action type
		approvalPolicy(t, `{"actionTypes": ["data_export"]}`),
		// Чужой action type пропускается
		approvalPolicy(t, `{"actionTypes": ["other"], "toolNames": ["x"]}`),
	}

	expr := AggregateConstraints(principal, "data_export", nil, approvalPolicies)

	assert.Equal(t, []string{"data_export"}, expr.RequiresApproval)
	assert.Equal(t, "Role: anonymous. Restricted: none. Approval required: data_export.", expr.ScopeNote)
}

func TestAggregateConstraints_EmptyPolicies(t *testing.T) {
	expr := AggregateConstraints(domain.Principal{AgentID: "a"}, "tool_call", nil, nil)

	assert.Empty(t, expr.AllowedTools)
	assert.Empty(t, expr.ForbiddenTools)
	assert.Empty(t, expr.RequiresApproval)
	assert.Equal(t, "Role: anonymous. Restricted: none. Approval required: none.", expr.ScopeNote)
	// Списки не nil: сериализуются как [], а не null
	data, err := json.Marshal(expr)
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "null")
}
