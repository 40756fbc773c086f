// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package selection

// ActiveSegmentFilter returns the segment set a chart query should be scoped
// to, in ascending order.
//
// The result is exactly the selected segment set. It is not derived from the
// selected signals: those may still own segments the user has since
// deselected directly. The slice is a copy and may be retained by the caller.
func (e *Engine) ActiveSegmentFilter() []SegmentID {
	return e.state.segments.sorted()
}

// HasActiveSelection reports whether any signal or segment is selected. When
// false, chart queries fall back to the unscoped view.
func (e *Engine) HasActiveSelection() bool {
	return !e.state.empty()
}
