// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package selection

// state holds the two selection sets. Neither set implies membership in the
// other; the Engine's toggle procedures keep them related.
type state struct {
	signals  set[SignalID]
	segments set[SegmentID]
}

func newState() state {
	return state{
		signals:  make(set[SignalID]),
		segments: make(set[SegmentID]),
	}
}

func (s *state) empty() bool {
	return len(s.signals) == 0 && len(s.segments) == 0
}

// Snapshot is an immutable copy of the selection at a given generation.
type Snapshot struct {
	Generation uint64      `json:"generation"`
	Signals    []SignalID  `json:"signals"`
	Segments   []SegmentID `json:"segments"`
}

// HasActiveSelection reports whether the snapshot holds anything.
func (s Snapshot) HasActiveSelection() bool {
	return len(s.Signals) > 0 || len(s.Segments) > 0
}

func (s *state) snapshot(generation uint64) Snapshot {
	return Snapshot{
		Generation: generation,
		Signals:    s.signals.sorted(),
		Segments:   s.segments.sorted(),
	}
}
