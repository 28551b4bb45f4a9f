package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tenor-lang/tenor/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newMem() storage.Store { return storage.NewMemory(nil) }

func TestMemoryConformance(t *testing.T) {
	err := storage.Conformance(context.Background(), newMem, 10)
	require.NoError(t, err)
}

func TestInitializeThenRead(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory(nil)

	snap, err := s.BeginSnapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InitializeEntity(ctx, snap, "Order", "o1", "draft"))

	// Staged init is invisible to non-locking reads until commit.
	_, err = s.GetEntityState(ctx, "Order", "o1")
	var nf *storage.NotFoundError
	require.ErrorAs(t, err, &nf)

	require.NoError(t, s.CommitSnapshot(ctx, snap))

	st, err := s.GetEntityState(ctx, "Order", "o1")
	require.NoError(t, err)
	require.Equal(t, "draft", st.State)
	require.Equal(t, uint64(0), st.Version)
}

func TestUpdateBumpsVersionAndAppendsProvenance(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory(nil)

	snap, err := s.BeginSnapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InitializeEntity(ctx, snap, "Order", "o1", "draft"))
	require.NoError(t, s.CommitSnapshot(ctx, snap))

	snap2, err := s.BeginSnapshot(ctx)
	require.NoError(t, err)
	read, err := s.GetEntityStateForUpdate(ctx, snap2, "Order", "o1")
	require.NoError(t, err)
	require.NoError(t, s.UpdateEntityState(ctx, snap2, "Order", "o1", read.Version, "submitted", "approval_flow", "submit"))
	require.NoError(t, s.CommitSnapshot(ctx, snap2))

	st, err := s.GetEntityState(ctx, "Order", "o1")
	require.NoError(t, err)
	require.Equal(t, "submitted", st.State)
	require.Equal(t, uint64(1), st.Version)

	recs, err := s.QueryProvenance(ctx, "Order", "o1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "draft", recs[0].From)
	require.Equal(t, "submitted", recs[0].To)
	require.Equal(t, "submit", recs[0].Op)
}

func TestStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory(nil)

	snap, err := s.BeginSnapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InitializeEntity(ctx, snap, "Order", "o1", "draft"))
	require.NoError(t, s.CommitSnapshot(ctx, snap))

	win, err := s.BeginSnapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdateEntityState(ctx, win, "Order", "o1", 0, "submitted", "f", "submit"))
	require.NoError(t, s.CommitSnapshot(ctx, win))

	lose, err := s.BeginSnapshot(ctx)
	require.NoError(t, err)
	err = s.UpdateEntityState(ctx, lose, "Order", "o1", 0, "cancelled", "f", "cancel")
	require.True(t, storage.IsConflict(err))

	var conflict *storage.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, uint64(0), conflict.Expected)
	require.Equal(t, uint64(1), conflict.Actual)
}

func TestAbortDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory(nil)

	snap, err := s.BeginSnapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InitializeEntity(ctx, snap, "Order", "o1", "draft"))
	require.NoError(t, s.CommitSnapshot(ctx, snap))

	snap2, err := s.BeginSnapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdateEntityState(ctx, snap2, "Order", "o1", 0, "submitted", "f", "submit"))
	require.NoError(t, s.AbortSnapshot(ctx, snap2))

	st, err := s.GetEntityState(ctx, "Order", "o1")
	require.NoError(t, err)
	require.Equal(t, "draft", st.State)
	require.Equal(t, uint64(0), st.Version)

	// The aborted snapshot is closed; a late commit must not revive it.
	var unknown *storage.UnknownSnapshotError
	require.ErrorAs(t, s.CommitSnapshot(ctx, snap2), &unknown)
}

func TestCommitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory(nil)

	snap, err := s.BeginSnapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InitializeEntity(ctx, snap, "Order", "o1", "draft"))
	require.NoError(t, s.CommitSnapshot(ctx, snap))
	require.NoError(t, s.CommitSnapshot(ctx, snap))

	st, err := s.GetEntityState(ctx, "Order", "o1")
	require.NoError(t, err)
	require.Equal(t, uint64(0), st.Version)
}

func TestFlowExecutions(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory(nil)

	_, err := s.GetFlowExecution(ctx, "nope")
	var nf *storage.ExecutionNotFoundError
	require.ErrorAs(t, err, &nf)

	require.NoError(t, s.PutFlowExecution(ctx, storage.FlowExecution{
		ID: "e1", Flow: "approval_flow", Persona: "clerk", Outcome: "approved",
		Steps: []storage.StepRecord{{StepID: "step_submit", StepType: "operation", Result: "success"}},
	}))
	require.NoError(t, s.PutFlowExecution(ctx, storage.FlowExecution{ID: "e2", Flow: "approval_flow", Outcome: "rejected"}))

	got, err := s.GetFlowExecution(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, "approved", got.Outcome)

	all, err := s.ListFlowExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "e1", all[0].ID)
	require.Equal(t, "e2", all[1].ID)
}
