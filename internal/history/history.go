// Package history implements snapshot-based undo and redo on top of the store.
package history

import (
	"go.uber.org/zap"

	"pagecraft/internal/store"
)

// DefaultDepth is the number of undo steps kept when none is configured.
const DefaultDepth = 100

// Snapshotter is the part of the store history needs.
type Snapshotter interface {
	Snapshot() store.Snapshot
	Restore(store.Snapshot)
}

type entry struct {
	label string
	snap  store.Snapshot
}

// Manager keeps bounded undo and redo stacks of full-state snapshots.
//
// Every user-visible gesture must call Push once before mutating, or wrap
// its mutations in BeginBatch/EndBatch. Nothing detects a missing Push.
type Manager struct {
	target Snapshotter
	depth  int
	undo   []entry
	redo   []entry

	batchDepth int
	batch      entry
	log        *zap.Logger
}

type Option func(*Manager)

func WithDepth(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.depth = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l.Named("history") }
}

func New(target Snapshotter, opts ...Option) *Manager {
	m := &Manager{target: target, depth: DefaultDepth, log: zap.NewNop()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Push records the current state under label and clears the redo stack.
// Inside a batch it does nothing.
func (m *Manager) Push(label string) {
	if m.batchDepth > 0 {
		return
	}
	m.push(label, m.target.Snapshot())
}

// Record pushes a state the caller captured before running a gesture whose
// effect was only known afterwards. Inside a batch it does nothing.
func (m *Manager) Record(label string, before store.Snapshot) {
	if m.batchDepth > 0 {
		return
	}
	m.push(label, before)
}

func (m *Manager) push(label string, snap store.Snapshot) {
	m.undo = append(m.undo, entry{label: label, snap: snap})
	if over := len(m.undo) - m.depth; over > 0 {
		clear(m.undo[:over])
		m.undo = m.undo[over:]
	}
	m.redo = nil
	m.log.Debug("snapshot pushed", zap.String("label", label), zap.Int("undo", len(m.undo)))
}

// Undo restores the most recent snapshot. It reports false at the bottom of
// the stack, leaving the state untouched.
func (m *Manager) Undo() bool {
	if len(m.undo) == 0 || m.batchDepth > 0 {
		return false
	}
	top := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, entry{label: top.label, snap: m.target.Snapshot()})
	m.target.Restore(top.snap)
	m.log.Info("undo", zap.String("label", top.label))
	return true
}

// Redo re-applies the most recently undone step.
func (m *Manager) Redo() bool {
	if len(m.redo) == 0 || m.batchDepth > 0 {
		return false
	}
	top := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, entry{label: top.label, snap: m.target.Snapshot()})
	m.target.Restore(top.snap)
	m.log.Info("redo", zap.String("label", top.label))
	return true
}

// BeginBatch opens a batch: the state at the outermost BeginBatch becomes
// one undo step and Push calls are ignored until the matching EndBatch.
func (m *Manager) BeginBatch(label string) {
	if m.batchDepth == 0 {
		m.batch = entry{label: label, snap: m.target.Snapshot()}
	}
	m.batchDepth++
}

// EndBatch closes the innermost batch. Closing the outermost one pushes the
// base snapshot, unless the state is unchanged. Unbalanced calls are ignored.
func (m *Manager) EndBatch() {
	if m.batchDepth == 0 {
		return
	}
	m.batchDepth--
	if m.batchDepth > 0 {
		return
	}
	base := m.batch
	m.batch = entry{}
	if base.snap.Equal(m.target.Snapshot()) {
		m.log.Debug("empty batch dropped", zap.String("label", base.label))
		return
	}
	m.push(base.label, base.snap)
}

func (m *Manager) InBatch() bool { return m.batchDepth > 0 }

func (m *Manager) CanUndo() bool { return len(m.undo) > 0 && m.batchDepth == 0 }
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 && m.batchDepth == 0 }

// Labels returns the undo labels, oldest first, and the redo labels, next
// redo first.
func (m *Manager) Labels() (undo, redo []string) {
	for _, e := range m.undo {
		undo = append(undo, e.label)
	}
	for i := len(m.redo) - 1; i >= 0; i-- {
		redo = append(redo, m.redo[i].label)
	}
	return undo, redo
}

// Clear drops both stacks, e.g. after loading a different project.
func (m *Manager) Clear() {
	m.undo, m.redo = nil, nil
	m.batchDepth = 0
	m.batch = entry{}
}
