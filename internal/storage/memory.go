package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type cellKey struct {
	entity   string
	instance string
}

type cell struct {
	state   string
	version uint64
}

// stagedWrite is one mutation buffered under an open snapshot. init
// writes carry expectedVersion 0 against a cell that must not exist.
type stagedWrite struct {
	key      cellKey
	init     bool
	expected uint64
	newState string
	flow     string
	op       string
}

type txn struct {
	writes    []stagedWrite
	committed bool
	aborted   bool
}

// Memory is the in-memory reference implementation of Store. All state
// lives under one mutex; the OCC check-and-apply at commit is therefore
// atomic, which is what makes exactly-one-winner hold under N-way
// contention. Snapshots buffer writes; UpdateEntityState validates the
// expected version eagerly against committed state so most losers fail
// fast, and commit re-validates so late losers cannot slip through.
type Memory struct {
	mu         sync.Mutex
	cells      map[cellKey]cell
	txns       map[SnapshotID]*txn
	executions map[string]FlowExecution
	execOrder  []string
	provenance []ProvenanceRecord
	log        *zap.Logger
}

// NewMemory returns an empty in-memory store. log may be nil.
func NewMemory(log *zap.Logger) *Memory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Memory{
		cells:      map[cellKey]cell{},
		txns:       map[SnapshotID]*txn{},
		executions: map[string]FlowExecution{},
		log:        log,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) BeginSnapshot(ctx context.Context) (SnapshotID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := SnapshotID(uuid.NewString())
	m.mu.Lock()
	m.txns[id] = &txn{}
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) CommitSnapshot(ctx context.Context, snap SnapshotID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[snap]
	if !ok {
		return &UnknownSnapshotError{Snapshot: snap}
	}
	if t.committed {
		// Idempotent under retry.
		return nil
	}
	if t.aborted {
		return &UnknownSnapshotError{Snapshot: snap}
	}

	// Validate the whole write set against committed state before
	// applying anything, so a conflicting snapshot commits nothing.
	for _, w := range t.writes {
		cur, exists := m.cells[w.key]
		if w.init {
			if exists {
				m.log.Debug("storage: init lost race",
					zap.String("entity", w.key.entity), zap.String("instance", w.key.instance))
				return &AlreadyInitializedError{Entity: w.key.entity, Instance: w.key.instance}
			}
			continue
		}
		if !exists {
			return &NotFoundError{Entity: w.key.entity, Instance: w.key.instance}
		}
		if cur.version != w.expected {
			m.log.Debug("storage: occ conflict at commit",
				zap.String("entity", w.key.entity), zap.String("instance", w.key.instance),
				zap.Uint64("expected", w.expected), zap.Uint64("actual", cur.version))
			return &ConflictError{Entity: w.key.entity, Instance: w.key.instance,
				Expected: w.expected, Actual: cur.version}
		}
	}

	for _, w := range t.writes {
		if w.init {
			m.cells[w.key] = cell{state: w.newState, version: 0}
			continue
		}
		prev := m.cells[w.key]
		next := cell{state: w.newState, version: prev.version + 1}
		m.cells[w.key] = next
		m.provenance = append(m.provenance, ProvenanceRecord{
			Entity:   w.key.entity,
			Instance: w.key.instance,
			From:     prev.state,
			To:       w.newState,
			Version:  next.version,
			Flow:     w.flow,
			Op:       w.op,
		})
	}
	t.committed = true
	t.writes = nil
	return nil
}

func (m *Memory) AbortSnapshot(ctx context.Context, snap SnapshotID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[snap]
	if !ok {
		return &UnknownSnapshotError{Snapshot: snap}
	}
	if t.committed {
		return &UnknownSnapshotError{Snapshot: snap}
	}
	t.aborted = true
	t.writes = nil
	return nil
}

func (m *Memory) InitializeEntity(ctx context.Context, snap SnapshotID, entity, instance, state string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.openTxn(snap)
	if err != nil {
		return err
	}
	key := cellKey{entity: entity, instance: instance}
	if _, exists := m.cells[key]; exists {
		return &AlreadyInitializedError{Entity: entity, Instance: instance}
	}
	t.writes = append(t.writes, stagedWrite{key: key, init: true, newState: state})
	return nil
}

func (m *Memory) GetEntityState(ctx context.Context, entity, instance string) (EntityState, error) {
	if err := ctx.Err(); err != nil {
		return EntityState{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cellKey{entity: entity, instance: instance}
	c, ok := m.cells[key]
	if !ok {
		return EntityState{}, &NotFoundError{Entity: entity, Instance: instance}
	}
	return EntityState{Entity: entity, Instance: instance, State: c.state, Version: c.version}, nil
}

func (m *Memory) GetEntityStateForUpdate(ctx context.Context, snap SnapshotID, entity, instance string) (EntityState, error) {
	if err := ctx.Err(); err != nil {
		return EntityState{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.openTxn(snap); err != nil {
		return EntityState{}, err
	}
	key := cellKey{entity: entity, instance: instance}
	c, ok := m.cells[key]
	if !ok {
		return EntityState{}, &NotFoundError{Entity: entity, Instance: instance}
	}
	return EntityState{Entity: entity, Instance: instance, State: c.state, Version: c.version}, nil
}

func (m *Memory) UpdateEntityState(ctx context.Context, snap SnapshotID, entity, instance string, expectedVersion uint64, newState, flow, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.openTxn(snap)
	if err != nil {
		return err
	}
	key := cellKey{entity: entity, instance: instance}
	c, ok := m.cells[key]
	if !ok {
		return &NotFoundError{Entity: entity, Instance: instance}
	}
	if c.version != expectedVersion {
		return &ConflictError{Entity: entity, Instance: instance,
			Expected: expectedVersion, Actual: c.version}
	}
	t.writes = append(t.writes, stagedWrite{
		key: key, expected: expectedVersion, newState: newState, flow: flow, op: op,
	})
	return nil
}

func (m *Memory) GetFlowExecution(ctx context.Context, id string) (FlowExecution, error) {
	if err := ctx.Err(); err != nil {
		return FlowExecution{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	exec, ok := m.executions[id]
	if !ok {
		return FlowExecution{}, &ExecutionNotFoundError{ID: id}
	}
	return exec, nil
}

func (m *Memory) ListFlowExecutions(ctx context.Context) ([]FlowExecution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FlowExecution, 0, len(m.execOrder))
	for _, id := range m.execOrder {
		out = append(out, m.executions[id])
	}
	return out, nil
}

func (m *Memory) PutFlowExecution(ctx context.Context, exec FlowExecution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if exec.ID == "" {
		exec.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.executions[exec.ID]; !seen {
		m.execOrder = append(m.execOrder, exec.ID)
	}
	m.executions[exec.ID] = exec
	return nil
}

func (m *Memory) AppendProvenance(ctx context.Context, rec ProvenanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.provenance = append(m.provenance, rec)
	m.mu.Unlock()
	return nil
}

func (m *Memory) QueryProvenance(ctx context.Context, entity, instance string) ([]ProvenanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ProvenanceRecord
	for _, rec := range m.provenance {
		if rec.Entity == entity && rec.Instance == instance {
			out = append(out, rec)
		}
	}
	return out, nil
}

// openTxn returns the live transaction for snap. Caller holds m.mu.
func (m *Memory) openTxn(snap SnapshotID) (*txn, error) {
	t, ok := m.txns[snap]
	if !ok || t.committed || t.aborted {
		return nil, &UnknownSnapshotError{Snapshot: snap}
	}
	return t, nil
}

// IsConflict reports whether err is (or wraps) an OCC ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
