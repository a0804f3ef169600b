package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to ApprovalState
		ok       bool
	}{
		{StatePending, StateApproved, true},
		{StatePending, StateRejected, true},
		{StatePending, StateExpired, true},
		{StatePending, StatePending, false}, // no-op решение — ошибка
		{StateApproved, StateRejected, false},
		{StateApproved, StateApproved, false}, // повтор терминального статуса тоже запрещен
		{StateRejected, StatePending, false},
		{StateExpired, StateApproved, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatePending.IsTerminal())
	assert.True(t, StateApproved.IsTerminal())
	assert.True(t, StateRejected.IsTerminal())
	assert.True(t, StateExpired.IsTerminal())
}

func TestPrincipalRoleLabel(t *testing.T) {
	assert.Equal(t, "anonymous", Principal{AgentID: "a"}.RoleLabel())
	assert.Equal(t, "member", Principal{AgentID: "a", Role: RoleMember}.RoleLabel())
}
