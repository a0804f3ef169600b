package policy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/agentgov/internal/domain"
)

type fakeSource struct {
	mu       sync.Mutex
	policies map[domain.PolicyCategory][]domain.Policy
	calls    int
	err      error
}

func (f *fakeSource) ListEnabled(_ context.Context, category domain.PolicyCategory) ([]domain.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.policies[category], nil
}

func TestMemoCache_ColdPassthrough(t *testing.T) {
	src := &fakeSource{policies: map[domain.PolicyCategory][]domain.Policy{
		domain.CategoryToolRestriction: {{ID: "p1", Category: domain.CategoryToolRestriction, Enabled: true}},
	}}
	cache := NewMemoCache(src, nil, zap.NewNop())

	// До первого Refresh идем напрямую в хранилище
	items, err := cache.ListEnabled(context.Background(), domain.CategoryToolRestriction)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, src.calls)
}

func TestMemoCache_ServesFromRAMAfterRefresh(t *testing.T) {
	src := &fakeSource{policies: map[domain.PolicyCategory][]domain.Policy{
		domain.CategoryContentFilter: {{ID: "c1"}},
		domain.CategoryToolRestriction: {{ID: "t1"}, {ID: "t2"}},
	}}
	cache := NewMemoCache(src, nil, zap.NewNop())

	require.NoError(t, cache.Refresh(context.Background()))
	callsAfterRefresh := src.calls

	for i := 0; i < 10; i++ {
		items, err := cache.ListEnabled(context.Background(), domain.CategoryToolRestriction)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	}

	// Hot Path не ходит в хранилище
	assert.Equal(t, callsAfterRefresh, src.calls)
}

func TestMemoCache_RefreshPropagatesStorageError(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	cache := NewMemoCache(src, nil, zap.NewNop())

	err := cache.Refresh(context.Background())
	assert.Error(t, err)
}

func TestMemoCache_RefreshReplacesWholesale(t *testing.T) {
	src := &fakeSource{policies: map[domain.PolicyCategory][]domain.Policy{
		domain.CategoryApprovalRequired: {{ID: "a1"}},
	}}
	cache := NewMemoCache(src, nil, zap.NewNop())
	require.NoError(t, cache.Refresh(context.Background()))

	src.mu.Lock()
	src.policies = map[domain.PolicyCategory][]domain.Policy{}
	src.mu.Unlock()
	require.NoError(t, cache.Refresh(context.Background()))

	items, err := cache.ListEnabled(context.Background(), domain.CategoryApprovalRequired)
	require.NoError(t, err)
	assert.Empty(t, items)
}
