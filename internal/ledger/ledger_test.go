package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(context.Background(), NewMemStore())
	require.NoError(t, err)
	return l
}

func TestNew_WritesGenesisEntry(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	entries, err := l.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EventGenesis, entries[0].EventType)
	assert.Equal(t, domain.GenesisPreviousHash, entries[0].PreviousHash)
}

func TestAppend_ChainsHashes(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	e1, err := l.Append(ctx, domain.EventDecision, map[string]any{"decision": "permit"})
	require.NoError(t, err)
	e2, err := l.Append(ctx, domain.EventDecision, map[string]any{"decision": "deny"})
	require.NoError(t, err)

	assert.Equal(t, e1.EntryHash, e2.PreviousHash)
	assert.NotEqual(t, e1.EntryHash, e2.EntryHash)
}

func TestVerifyIntegrity_ValidChain(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	_, err := l.Append(ctx, domain.EventDecision, map[string]any{"decision": "permit"})
	require.NoError(t, err)

	report, err := l.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.True(t, report.ChainIntact)
	assert.Equal(t, 2, report.EntriesChecked) // genesis + decision
}

func TestVerifyIntegrity_Idempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	_, err := l.Append(ctx, domain.EventDecision, map[string]any{"decision": "permit"})
	require.NoError(t, err)

	r1, err := l.VerifyIntegrity(ctx)
	require.NoError(t, err)
	r2, err := l.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestVerifyIntegrity_DetectsTamperedHash(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	l, err := New(ctx, store)
	require.NoError(t, err)
	_, err = l.Append(ctx, domain.EventDecision, map[string]any{"decision": "permit"})
	require.NoError(t, err)

	entries, err := store.All(ctx)
	require.NoError(t, err)
	entries[1].Data["decision"] = "deny" // mutate after the fact, hash now stale
	store.entries[1] = entries[1]
	store.byHash[entries[1].EntryHash] = 1

	report, err := l.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, entries[1].EntryID, report.FirstBroken)
}

func TestGetEntry_NotFound(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	_, err := l.GetEntry(ctx, "does-not-exist")
	require.Error(t, err)
}
