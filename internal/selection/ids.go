// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package selection

import (
	"cmp"
	"slices"
)

// SignalID identifies a physical traffic signal. The empty string is treated
// as a missing identifier.
type SignalID string

// SegmentID identifies a directional XD road segment.
type SegmentID int64

// MembershipRecord associates one signal with one segment.
//
// Segment is nil for signals that have no assigned segments; such records
// contribute no mapping to an Index. Attributes carries descriptive
// passthrough data (bearing, road name, length) for rendering and is never
// inspected by this package.
type MembershipRecord struct {
	Signal     SignalID
	Segment    *SegmentID
	Attributes any
}

// Seg returns a pointer to id, for building records in literals.
func Seg(id SegmentID) *SegmentID {
	return &id
}

// set is an unordered collection of unique identifiers.
type set[T cmp.Ordered] map[T]struct{}

func (s set[T]) add(v T) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

func (s set[T]) remove(v T) bool {
	if _, ok := s[v]; !ok {
		return false
	}
	delete(s, v)
	return true
}

func (s set[T]) has(v T) bool {
	_, ok := s[v]
	return ok
}

// sorted returns the members in ascending order. The result is never nil so
// that JSON encoders render an empty array rather than null.
func (s set[T]) sorted() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
