// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package selection

// ChangeKind names the operation that produced a Change.
type ChangeKind string

const (
	ChangeSignalToggled  ChangeKind = "signal_toggled"
	ChangeSegmentToggled ChangeKind = "segment_toggled"
	ChangeCleared        ChangeKind = "cleared"
	ChangeIndexReplaced  ChangeKind = "index_replaced"
)

// Change describes one observable mutation of an Engine.
type Change struct {
	Kind ChangeKind

	// Signal is set for ChangeSignalToggled, Segment for ChangeSegmentToggled.
	Signal  SignalID
	Segment SegmentID

	// Selected is the target's membership after a toggle.
	Selected bool

	Generation uint64
	Snapshot   Snapshot
}

// Listener receives changes synchronously, after the mutation is complete.
type Listener func(Change)

// Option configures an Engine.
type Option func(*Engine)

// WithListener registers l at construction time.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		e.OnChange(l)
	}
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Engine applies selection toggles against a membership Index.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	index *Index
	state state

	generation uint64

	listeners      []listenerEntry
	nextListenerID uint64
}

// New creates an Engine over idx. A nil idx behaves as an empty Index.
func New(idx *Index, opts ...Option) *Engine {
	if idx == nil {
		idx = BuildIndex(nil)
	}
	e := &Engine{
		index: idx,
		state: newState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnChange registers l and returns a function that removes it.
func (e *Engine) OnChange(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	e.nextListenerID++
	id := e.nextListenerID
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: l})

	return func() {
		for i, entry := range e.listeners {
			if entry.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// ToggleSignal selects or deselects signal.
//
// Selecting adds the signal and every segment it owns. Deselecting removes
// the signal first, then removes each owned segment unless another selected
// signal still owns it. A signal absent from the index toggles on its own.
func (e *Engine) ToggleSignal(signal SignalID) {
	segments := e.index.segmentsOf[signal]

	selected := !e.state.signals.has(signal)
	if selected {
		e.state.signals.add(signal)
		for seg := range segments {
			e.state.segments.add(seg)
		}
	} else {
		e.state.signals.remove(signal)
		for seg := range segments {
			if !e.index.sharedWithSelected(seg, e.state.signals) {
				e.state.segments.remove(seg)
			}
		}
	}

	e.emit(Change{Kind: ChangeSignalToggled, Signal: signal, Selected: selected})
}

// ToggleSegment flips segment in the selected segment set. Selected signals
// are left untouched, so a segment deselected here stays deselected even
// while its owning signal remains selected.
func (e *Engine) ToggleSegment(segment SegmentID) {
	selected := !e.state.segments.remove(segment)
	if selected {
		e.state.segments.add(segment)
	}

	e.emit(Change{Kind: ChangeSegmentToggled, Segment: segment, Selected: selected})
}

// ClearAll empties both selection sets. Clearing an empty selection is not a
// change and notifies no listeners.
func (e *Engine) ClearAll() {
	if e.state.empty() {
		return
	}
	e.state = newState()
	e.emit(Change{Kind: ChangeCleared})
}

// ReplaceIndex swaps in a rebuilt index. The selection is kept; identifiers
// missing from idx resolve as unknown from now on.
func (e *Engine) ReplaceIndex(idx *Index) {
	if idx == nil {
		idx = BuildIndex(nil)
	}
	e.index = idx
	e.emit(Change{Kind: ChangeIndexReplaced})
}

// Index returns the current membership index.
func (e *Engine) Index() *Index {
	return e.index
}

// IsSignalSelected reports whether signal is selected.
func (e *Engine) IsSignalSelected(signal SignalID) bool {
	return e.state.signals.has(signal)
}

// IsSegmentSelected reports whether segment is selected.
func (e *Engine) IsSegmentSelected(segment SegmentID) bool {
	return e.state.segments.has(segment)
}

// SelectedSignals returns the selected signals in lexical order.
func (e *Engine) SelectedSignals() []SignalID {
	return e.state.signals.sorted()
}

// Generation returns the number of observable changes applied so far.
func (e *Engine) Generation() uint64 {
	return e.generation
}

// Snapshot copies the current selection.
func (e *Engine) Snapshot() Snapshot {
	return e.state.snapshot(e.generation)
}

func (e *Engine) emit(c Change) {
	e.generation++
	if len(e.listeners) == 0 {
		return
	}

	c.Generation = e.generation
	c.Snapshot = e.state.snapshot(e.generation)

	// Copy so listeners may unsubscribe while being notified.
	listeners := make([]listenerEntry, len(e.listeners))
	copy(listeners, e.listeners)
	for _, l := range listeners {
		l.fn(c)
	}
}
