package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pagecraft/internal/analyzer"
	"pagecraft/internal/config"
	"pagecraft/internal/domain"
	"pagecraft/internal/export"
	"pagecraft/internal/history"
	"pagecraft/internal/snap"
	"pagecraft/internal/storage"
	"pagecraft/internal/store"
)

// ─────────────────────────────────────────────────────────────
// Session: one editing session over a store and its history
// ─────────────────────────────────────────────────────────────

var (
	// ErrNoProject is returned when saving a session that was never named.
	ErrNoProject = errors.New("session has no project name")
	// ErrNoStorage is returned by persistence calls on a session without a database.
	ErrNoStorage = errors.New("session has no storage")
)

// ZOrder names a z-order change.
type ZOrder string

const (
	ToFront  ZOrder = "front"
	ToBack   ZOrder = "back"
	Forward  ZOrder = "forward"
	Backward ZOrder = "backward"
)

// Session serialises access to a store so several callers (MCP tools, the
// autosaver, a watcher) can share it. Every mutating gesture records exactly
// one undo step, and only when it changed something.
type Session struct {
	mu      sync.Mutex
	store   *store.Store
	history *history.Manager
	editor  config.EditorConfig
	rules   analyzer.Config
	title   string
	emitter EventEmitter
	log     *zap.Logger

	projects  *storage.ProjectStore
	revisions *storage.RevisionStore
	projectID string
	name      string
	dirty     bool
	drag      *dragState

	storeOpts []store.Option
}

type Option func(*Session)

func WithEmitter(e EventEmitter) Option {
	return func(s *Session) { s.emitter = e }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithStorage enables Save, Open and revisions. keep bounds the revisions
// kept per project.
func WithStorage(db *storage.DB, keep int) Option {
	return func(s *Session) {
		s.projects = storage.NewProjectStore(db)
		s.revisions = storage.NewRevisionStore(db, keep)
	}
}

// WithStoreOptions passes extra options to the underlying store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(s *Session) { s.storeOpts = append(s.storeOpts, opts...) }
}

// NewSession creates an empty session. A nil cfg means defaults.
func NewSession(cfg *config.Config, opts ...Option) *Session {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	s := &Session{
		editor:  cfg.Editor,
		rules:   cfg.Analyzer,
		title:   cfg.Export.Title,
		emitter: nopEmitter{},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}

	vp := domain.DefaultViewport()
	if cfg.Editor.GridSize > 0 {
		vp.GridSize = cfg.Editor.GridSize
	}
	base := []store.Option{
		store.WithLogger(s.log),
		store.WithViewport(vp),
		store.WithMinDrawSize(cfg.Editor.MinDrawSize),
	}
	if e := cfg.Editor; e.MinZoom > 0 && e.MaxZoom > e.MinZoom {
		base = append(base, store.WithZoomLimits(e.MinZoom, e.MaxZoom))
	}
	s.store = store.New(append(base, s.storeOpts...)...)
	s.history = history.New(s.store, history.WithDepth(cfg.Editor.HistoryDepth), history.WithLogger(s.log))
	forward(context.Background(), s.store.Events(), s.emitter)
	s.log = s.log.Named("session")
	return s
}

// gesture runs fn as one undo step. The prior state is recorded only when
// fn reports a change; inside a drag the open batch covers it instead.
func (s *Session) gesture(label string, fn func() bool) bool {
	before := s.store.Snapshot()
	if !fn() {
		return false
	}
	s.history.Record(label, before)
	s.dirty = true
	s.log.Debug("gesture", zap.String("label", label))
	return true
}

// ── Reads ──────────────────────────────────────────────────

// View runs fn with the store under the session lock. fn must not keep the
// store or mutate it.
func (s *Session) View(fn func(*store.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

func (s *Session) Element(id string) (domain.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Element(id)
}

func (s *Session) Elements() []domain.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Elements()
}

func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Selection()
}

func (s *Session) Viewport() domain.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Viewport()
}

func (s *Session) AbsoluteRect(id string) (domain.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AbsoluteRect(id)
}

// Name returns the project name, empty until the session is saved or opened.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// ── Element gestures ───────────────────────────────────────

// Add creates an element; it returns "" when parentID does not exist.
func (s *Session) Add(def domain.Element, parentID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id string
	s.gesture("add", func() bool {
		id = s.store.Add(def, parentID)
		return id != ""
	})
	return id
}

// Draw commits a draw-tool rectangle given in canvas space.
func (s *Session) Draw(r domain.Rect, parentID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var id string
	s.gesture("draw", func() bool {
		id = s.store.DrawBox(r, parentID)
		return id != ""
	})
	return id
}

func (s *Session) Update(id string, p domain.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gesture("edit", func() bool { return s.store.Update(id, p) })
}

// Resize changes an element's size and propagates it to the subtree.
func (s *Session) Resize(id string, width, height float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gesture("resize", func() bool {
		_, ok := s.store.Resize(id, width, height)
		return ok
	})
}

// Remove deletes the given elements with their subtrees.
func (s *Session) Remove(ids ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(ids)
}

// DeleteSelection removes every selected element.
func (s *Session) DeleteSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(s.store.Selection())
}

func (s *Session) remove(ids []string) bool {
	return s.gesture("delete", func() bool {
		removed := false
		for _, id := range ids {
			if s.store.Remove(id) {
				removed = true
			}
		}
		return removed
	})
}

// Duplicate clones the subtree at id, offset by (dx, dy), and selects the clone.
func (s *Session) Duplicate(id string, dx, dy float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var clone string
	s.gesture("duplicate", func() bool {
		clone = s.store.Duplicate(id, dx, dy)
		if clone != "" {
			s.store.SetSelection(clone)
		}
		return clone != ""
	})
	return clone
}

func (s *Session) Reparent(id, parentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gesture("reparent", func() bool { return s.store.Reparent(id, parentID) })
}

func (s *Session) Reorder(id string, op ZOrder) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fn func(string) bool
	switch op {
	case ToFront:
		fn = s.store.BringToFront
	case ToBack:
		fn = s.store.SendToBack
	case Forward:
		fn = s.store.BringForward
	case Backward:
		fn = s.store.SendBackward
	default:
		return false
	}
	return s.gesture("reorder", func() bool { return fn(id) })
}

// Move is one parent-relative position change.
type Move struct {
	ID string
	X  float64
	Y  float64
}

// MoveAll applies several moves as a single undo step.
func (s *Session) MoveAll(label string, moves []Move) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gesture(label, func() bool {
		changed := false
		for _, m := range moves {
			if s.store.Update(m.ID, domain.MoveTo(m.X, m.Y)) {
				changed = true
			}
		}
		return changed
	})
}

// ── Selection and viewport (not undoable) ──────────────────

func (s *Session) Select(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetSelection(ids...)
}

func (s *Session) AddToSelection(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.AddToSelection(ids...)
}

func (s *Session) ToggleSelection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ToggleSelection(id)
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ClearSelection()
}

func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SelectAll()
}

func (s *Session) SetZoom(z float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetZoom(z)
}

// ZoomAt zooms by factor keeping the canvas point under (sx, sy) in place.
func (s *Session) ZoomAt(factor, sx, sy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ZoomAt(factor, sx, sy)
}

func (s *Session) SetPan(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetPan(x, y)
}

func (s *Session) SetGrid(size float64, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetGrid(size, visible)
}

func (s *Session) SetSnapEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetSnapEnabled(on)
}

func (s *Session) SetTool(t domain.Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SetTool(t)
}

// ── History ────────────────────────────────────────────────

func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil || !s.history.Undo() {
		return false
	}
	s.dirty = true
	s.emitter.Emit(context.Background(), EventHistory, "undo")
	return true
}

func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil || !s.history.Redo() {
		return false
	}
	s.dirty = true
	s.emitter.Emit(context.Background(), EventHistory, "redo")
	return true
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// HistoryLabels returns the undo labels, oldest first, and the redo labels,
// next redo first.
func (s *Session) HistoryLabels() (undo, redo []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Labels()
}

// ── Analysis and export ────────────────────────────────────

// Analyze runs the layout analyzer and writes its results back. The pass
// is one undo step when it changed any element.
func (s *Session) Analyze() *analyzer.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyze()
}

func (s *Session) analyze() *analyzer.Result {
	var res *analyzer.Result
	s.gesture("analyze", func() bool {
		res = analyzer.Analyze(analyzer.Collect(s.store), s.rules)
		return len(analyzer.Apply(s.store, res, s.log)) > 0
	})
	return res
}

// SnapOptions returns the snapping options for the current viewport.
func (s *Session) SnapOptions() snap.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapOptions()
}

func (s *Session) snapOptions() snap.Options {
	vp := s.store.Viewport()
	return snap.Options{
		Threshold:  s.editor.SnapThreshold,
		Zoom:       vp.Zoom,
		GridSize:   vp.GridSize,
		SnapToGrid: vp.SnapEnabled,
	}
}

// Bundle generates the export files without packaging them.
func (s *Session) Bundle(title string) (*export.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.Generate(s.store, s.exportOptions(title))
}

// Archive packages the page into a ZIP archive.
func (s *Session) Archive(ctx context.Context, title string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := export.ExportArchive(s.store, s.exportOptions(title))
	if err != nil {
		return nil, fmt.Errorf("export archive: %w", err)
	}
	s.emitter.Emit(ctx, EventExported, len(data))
	return data, nil
}

func (s *Session) exportOptions(title string) export.Options {
	if title == "" {
		title = s.title
	}
	if title == "" {
		title = s.name
	}
	return export.Options{Title: title, Logger: s.log}
}

// ── Project documents ──────────────────────────────────────

// ToJSON serialises the current project.
func (s *Session) ToJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ToJSON()
}

// LoadJSON replaces the whole state with a project document. History is
// cleared; on error nothing changes.
func (s *Session) LoadJSON(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		s.endDrag()
	}
	if err := s.store.FromJSON(data); err != nil {
		return err
	}
	s.history.Clear()
	s.dirty = false
	return nil
}

// Import replaces the state with a project document as one undoable step
// and marks the session dirty, unlike LoadJSON which starts afresh.
func (s *Session) Import(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag != nil {
		s.endDrag()
	}
	var err error
	s.gesture("import", func() bool {
		err = s.store.FromJSON(data)
		return err == nil
	})
	return err
}

// Validate checks the live tree against the hierarchy invariants.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Validate()
}
