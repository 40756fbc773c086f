// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package selection

// Index is the bidirectional signal/segment membership graph.
//
// Both directions are derived from the same records in a single pass, so
// segmentsOf and signalsOf are always exact transposes of each other. An
// Index is never patched in place; a changed entity set produces a new one
// via BuildIndex.
type Index struct {
	segmentsOf map[SignalID]set[SegmentID]
	signalsOf  map[SegmentID]set[SignalID]
	pairs      int
}

// BuildIndex constructs an Index from membership records.
//
// Records with an empty signal or a nil segment are skipped and duplicate
// pairs are collapsed. A nil or empty slice yields an empty Index.
func BuildIndex(records []MembershipRecord) *Index {
	idx := &Index{
		segmentsOf: make(map[SignalID]set[SegmentID]),
		signalsOf:  make(map[SegmentID]set[SignalID]),
	}

	for i := range records {
		rec := &records[i]
		if rec.Signal == "" || rec.Segment == nil {
			continue
		}
		seg := *rec.Segment

		segs, ok := idx.segmentsOf[rec.Signal]
		if !ok {
			segs = make(set[SegmentID])
			idx.segmentsOf[rec.Signal] = segs
		}
		if !segs.add(seg) {
			continue
		}

		sigs, ok := idx.signalsOf[seg]
		if !ok {
			sigs = make(set[SignalID])
			idx.signalsOf[seg] = sigs
		}
		sigs.add(rec.Signal)
		idx.pairs++
	}

	return idx
}

// SegmentsFor returns the segments owned by signal in ascending order, or an
// empty slice when the signal is not indexed.
func (idx *Index) SegmentsFor(signal SignalID) []SegmentID {
	if idx == nil {
		return []SegmentID{}
	}
	return idx.segmentsOf[signal].sorted()
}

// SignalsFor returns the signals owning segment in lexical order, or an empty
// slice when the segment is not indexed.
func (idx *Index) SignalsFor(segment SegmentID) []SignalID {
	if idx == nil {
		return []SignalID{}
	}
	return idx.signalsOf[segment].sorted()
}

// Contains reports whether the pair (signal, segment) is indexed.
func (idx *Index) Contains(signal SignalID, segment SegmentID) bool {
	if idx == nil {
		return false
	}
	return idx.segmentsOf[signal].has(segment)
}

// Signals returns every signal that owns at least one segment.
func (idx *Index) Signals() []SignalID {
	if idx == nil {
		return []SignalID{}
	}
	out := make(set[SignalID], len(idx.segmentsOf))
	for s := range idx.segmentsOf {
		out.add(s)
	}
	return out.sorted()
}

// Segments returns every indexed segment.
func (idx *Index) Segments() []SegmentID {
	if idx == nil {
		return []SegmentID{}
	}
	out := make(set[SegmentID], len(idx.signalsOf))
	for s := range idx.signalsOf {
		out.add(s)
	}
	return out.sorted()
}

// SignalCount returns the number of indexed signals.
func (idx *Index) SignalCount() int {
	if idx == nil {
		return 0
	}
	return len(idx.segmentsOf)
}

// SegmentCount returns the number of indexed segments.
func (idx *Index) SegmentCount() int {
	if idx == nil {
		return 0
	}
	return len(idx.signalsOf)
}

// PairCount returns the number of distinct (signal, segment) pairs.
func (idx *Index) PairCount() int {
	if idx == nil {
		return 0
	}
	return idx.pairs
}

// sharedWithSelected reports whether any selected signal other than the
// already-removed one still owns segment.
func (idx *Index) sharedWithSelected(segment SegmentID, selected set[SignalID]) bool {
	for owner := range idx.signalsOf[segment] {
		if selected.has(owner) {
			return true
		}
	}
	return false
}
