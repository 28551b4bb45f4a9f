// Package storage defines the storage contract: the transactional
// persistence API hosted executors use
// to checkpoint flow evaluation. The core defines the interface, a
// closed error enumeration, an in-memory reference implementation, and
// a conformance suite; concrete database/KV drivers live outside the
// core and are validated against the same suite.
package storage

import (
	"context"
	"fmt"
)

// SnapshotID names one open storage transaction.
type SnapshotID string

// EntityState is the committed state of one (entity, instance) cell,
// paired with the OCC version that guards updates to it.
type EntityState struct {
	Entity   string
	Instance string
	State    string
	Version  uint64
}

// StepRecord is one executed flow step persisted with its execution.
type StepRecord struct {
	StepID   string `json:"step_id"`
	StepType string `json:"step_type"`
	Result   string `json:"result"`
}

// FlowExecution is a persisted record of one flow run.
type FlowExecution struct {
	ID      string       `json:"id"`
	Flow    string       `json:"flow"`
	Persona string       `json:"persona"`
	Outcome string       `json:"outcome"`
	Steps   []StepRecord `json:"steps"`
}

// ProvenanceRecord is one appended audit entry: which flow and
// operation moved which (entity, instance) cell, and to what.
type ProvenanceRecord struct {
	Entity   string `json:"entity"`
	Instance string `json:"instance"`
	From     string `json:"from"`
	To       string `json:"to"`
	Version  uint64 `json:"version"`
	Flow     string `json:"flow"`
	Op       string `json:"op"`
}

// Store is the persistence contract consumed by hosted executors.
// Every mutating operation must be idempotent-safe under
// retry; drivers are expected to honor ctx deadlines and translate
// timeouts into retryable errors. OCC version checks are the sole
// coordination mechanism.
type Store interface {
	// BeginSnapshot opens a transaction. Writes staged under the
	// snapshot become visible to non-locking reads only after
	// CommitSnapshot; AbortSnapshot discards them.
	BeginSnapshot(ctx context.Context) (SnapshotID, error)
	CommitSnapshot(ctx context.Context, snap SnapshotID) error
	AbortSnapshot(ctx context.Context, snap SnapshotID) error

	// InitializeEntity stages the creation of (entity, instance) at
	// version 0 in the given state. Committing a snapshot whose
	// initialization races a committed one fails with
	// AlreadyInitializedError; exactly one of N concurrent
	// initializations of the same cell wins.
	InitializeEntity(ctx context.Context, snap SnapshotID, entity, instance, state string) error

	// GetEntityState is a non-locking read of committed state.
	GetEntityState(ctx context.Context, entity, instance string) (EntityState, error)

	// GetEntityStateForUpdate reads committed state under the
	// snapshot, returning the version an UpdateEntityState for the
	// same cell must present.
	GetEntityStateForUpdate(ctx context.Context, snap SnapshotID, entity, instance string) (EntityState, error)

	// UpdateEntityState stages a transition of (entity, instance) to
	// newState, guarded by expectedVersion. The version is validated
	// against committed state both here and again at commit; if the
	// stored version differs at either point the operation fails with
	// ConflictError.
	UpdateEntityState(ctx context.Context, snap SnapshotID, entity, instance string, expectedVersion uint64, newState, flow, op string) error

	GetFlowExecution(ctx context.Context, id string) (FlowExecution, error)
	ListFlowExecutions(ctx context.Context) ([]FlowExecution, error)
	PutFlowExecution(ctx context.Context, exec FlowExecution) error

	AppendProvenance(ctx context.Context, rec ProvenanceRecord) error
	QueryProvenance(ctx context.Context, entity, instance string) ([]ProvenanceRecord, error)
}

// NotFoundError is the EntityNotFound member of the closed storage
// error enumeration.
type NotFoundError struct {
	Entity   string
	Instance string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("storage: entity (%s, %s) not found", e.Entity, e.Instance)
}

// AlreadyInitializedError reports a second initialization of an
// existing (entity, instance) cell.
type AlreadyInitializedError struct {
	Entity   string
	Instance string
}

func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("storage: entity (%s, %s) already initialized", e.Entity, e.Instance)
}

// ConflictError reports an OCC version mismatch (ConcurrentConflict):
// the committed version moved between the caller's read and its write.
type ConflictError struct {
	Entity   string
	Instance string
	Expected uint64
	Actual   uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("storage: concurrent conflict on (%s, %s): expected version %d, stored version %d",
		e.Entity, e.Instance, e.Expected, e.Actual)
}

// ExecutionNotFoundError reports an unknown flow-execution id.
type ExecutionNotFoundError struct {
	ID string
}

func (e *ExecutionNotFoundError) Error() string {
	return fmt.Sprintf("storage: flow execution %q not found", e.ID)
}

// UnknownSnapshotError reports an operation against a snapshot id the
// store has never issued, or one already closed by commit/abort.
type UnknownSnapshotError struct {
	Snapshot SnapshotID
}

func (e *UnknownSnapshotError) Error() string {
	return fmt.Sprintf("storage: unknown or closed snapshot %q", e.Snapshot)
}
