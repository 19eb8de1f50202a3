package history

import (
	"go.uber.org/zap"

	"modman/internal/reactive"
)

// State is a read-only summary of the controller.
type State struct {
	Index   int
	Len     int
	CanUndo bool
	CanRedo bool
}

// History records snapshots of a reactive cell and moves the cell between
// them. All methods run synchronously on the caller's goroutine; a History
// must not be used from more than one goroutine at a time.
type History[T any] struct {
	source    *reactive.Cell[T]
	snapshots []T
	index     int
	applying  bool
	baseline  T

	copy     CopyFunc[T]
	limit    int
	onChange func(State)
	logger   *zap.Logger
	sub      *reactive.Subscription
}

type Option[T any] func(*History[T])

func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(h *History[T]) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithLimit keeps at most n snapshots, dropping the oldest. n <= 0 means
// unlimited.
func WithLimit[T any](n int) Option[T] {
	return func(h *History[T]) {
		h.limit = n
	}
}

// WithCopier replaces the primary copy path. The lossy and JSON fallbacks
// still apply when it fails.
func WithCopier[T any](fn CopyFunc[T]) Option[T] {
	return func(h *History[T]) {
		if fn != nil {
			h.copy = fn
		}
	}
}

// WithOnChange is called after every change to the snapshot sequence or cursor.
func WithOnChange[T any](fn func(State)) Option[T] {
	return func(h *History[T]) {
		h.onChange = fn
	}
}

// New captures the baseline and starts watching source. The watch fires once
// immediately, which seeds the history with the current value.
func New[T any](source *reactive.Cell[T], opts ...Option[T]) *History[T] {
	h := &History[T]{
		source: source,
		copy:   StructuralCopy[T],
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.baseline = h.clone(source.Get())
	h.sub = source.Watch(h.observe, reactive.Immediate())

	return h
}

func (h *History[T]) CanUndo() bool {
	return h.index > 0
}

func (h *History[T]) CanRedo() bool {
	return h.index < len(h.snapshots)-1
}

func (h *History[T]) Index() int {
	return h.index
}

func (h *History[T]) Len() int {
	return len(h.snapshots)
}

func (h *History[T]) State() State {
	return State{
		Index:   h.index,
		Len:     len(h.snapshots),
		CanUndo: h.CanUndo(),
		CanRedo: h.CanRedo(),
	}
}

// Baseline returns a copy of the value Cancel restores.
func (h *History[T]) Baseline() T {
	return h.clone(h.baseline)
}

// Snapshots returns copies of the recorded snapshots, oldest first.
func (h *History[T]) Snapshots() []T {
	out := make([]T, len(h.snapshots))
	for i, s := range h.snapshots {
		out[i] = h.clone(s)
	}
	return out
}

// Undo moves the cell to the previous snapshot.
func (h *History[T]) Undo() {
	if !h.CanUndo() {
		return
	}
	h.applyAt(h.index - 1)
}

// Redo moves the cell to the next snapshot.
func (h *History[T]) Redo() {
	if !h.CanRedo() {
		return
	}
	h.applyAt(h.index + 1)
}

// Commit makes the current value the new baseline and drops all history.
func (h *History[T]) Commit() {
	current := h.source.Get()
	h.baseline = h.clone(current)
	h.snapshots = []T{h.clone(current)}
	h.index = 0
	h.changed()
}

// Cancel restores the baseline and drops all history.
func (h *History[T]) Cancel() {
	h.apply(h.baseline)
	h.snapshots = []T{h.clone(h.baseline)}
	h.index = 0
	h.changed()
}

// Close stops watching the source. The controller keeps its snapshots but
// no longer records changes.
func (h *History[T]) Close() {
	h.sub.Stop()
}

func (h *History[T]) observe(value T) {
	if h.applying {
		return
	}

	// Compare the copy rather than value: members the copy drops must not
	// count as a change.
	snapshot := h.clone(value)
	if len(h.snapshots) == 0 {
		h.snapshots = []T{snapshot}
		h.index = 0
		h.changed()
		return
	}

	if Equal(snapshot, h.snapshots[h.index]) {
		return
	}

	h.record(snapshot)
}

// record appends snapshot, which must already be a copy.
func (h *History[T]) record(snapshot T) {
	h.snapshots = append(h.snapshots[:h.index+1:h.index+1], snapshot)
	h.index = len(h.snapshots) - 1

	if h.limit > 0 && len(h.snapshots) > h.limit {
		excess := len(h.snapshots) - h.limit
		h.snapshots = h.snapshots[excess:]
		h.index -= excess
	}

	h.changed()
}

func (h *History[T]) applyAt(index int) {
	if index < 0 || index >= len(h.snapshots) {
		h.logger.Warn("no snapshot found at index",
			zap.Int("index", index),
			zap.Int("len", len(h.snapshots)),
		)
		return
	}

	h.index = index
	h.apply(h.snapshots[index])
	h.changed()
}

func (h *History[T]) apply(snapshot T) {
	h.applying = true
	defer func() { h.applying = false }()

	h.source.Set(h.clone(snapshot))
}

func (h *History[T]) clone(value T) T {
	return cloneWith(value, h.copy, h.logger)
}

func (h *History[T]) changed() {
	if h.onChange != nil {
		h.onChange(h.State())
	}
}
