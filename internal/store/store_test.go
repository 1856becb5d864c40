package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLastWriteWinsAcrossOutOfOrderStaging(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	// Simulate two segments staged out of timestamp order: the higher
	// timestamp is staged first, and the later-staged segment's SET with a
	// lower timestamp must lose to it.
	tx1, err := s.BeginRecoveryTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx1.StageMutations(ctx, []Mutation{
		{Key: "k", Time: 100, Value: []byte("newer"), Set: true},
	}))
	require.NoError(t, tx1.Commit(ctx))

	tx2, err := s.BeginRecoveryTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.StageMutations(ctx, []Mutation{
		{Key: "k", Time: 50, Value: []byte("older"), Set: true},
	}))
	require.NoError(t, tx2.Commit(ctx))

	require.NoError(t, s.Reconcile(ctx))

	var got []Row
	require.NoError(t, s.LoadAll(ctx, 10, func(rows []Row) error {
		got = append(got, rows...)
		return nil
	}))
	require.Len(t, got, 1)
	require.Equal(t, "newer", string(got[0].Value))
}

func TestReconcileAppliesSetsAndDeletes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	tx, err := s.BeginRecoveryTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.StageMutations(ctx, []Mutation{
		{Key: "a", Time: 1, Value: []byte("1"), Set: true},
		{Key: "b", Time: 2, Value: []byte("2"), Set: true},
	}))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, s.Reconcile(ctx))

	tx2, err := s.BeginRecoveryTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.StageMutations(ctx, []Mutation{
		{Key: "a", Time: 3, Set: false},
	}))
	require.NoError(t, tx2.Commit(ctx))
	require.NoError(t, s.Reconcile(ctx))

	var got []Row
	require.NoError(t, s.LoadAll(ctx, 10, func(rows []Row) error {
		got = append(got, rows...)
		return nil
	}))
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0].Key)
}

func TestEncodeTimeIsLexicographicallyOrdered(t *testing.T) {
	small := encodeTime(5)
	big := encodeTime(123456789)
	require.Len(t, small, 39)
	require.Len(t, big, 39)
	if small >= big {
		t.Fatalf("expected %q < %q as strings", small, big)
	}
}
