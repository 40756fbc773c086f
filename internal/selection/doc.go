// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

/*
Package selection tracks which map entities are selected and derives the
segment filter handed to chart queries.

Two kinds of entity appear on the map: traffic signals (SignalID) and XD road
segments (SegmentID). They are related many-to-many through a membership
Index built from dimension records. A segment on the boundary between two
intersections belongs to both signals.

# Selection Rules

The Engine holds two independent sets, selected signals and selected segments,
and mutates them only through its toggle operations:

  - ToggleSignal selects a signal together with every segment it owns. On
    deselection each owned segment is dropped unless another still-selected
    signal also owns it.
  - ToggleSegment flips a single segment. It never looks at signals, so a
    direct click always wins over signal-level grouping.
  - ClearAll empties both sets.

ActiveSegmentFilter returns the selected segment set as held. It is never
recomputed from the selected signals, since that would resurrect segments the
user deselected directly.

# Index Lifecycle

An Index is immutable and rebuilt wholesale whenever the displayed entity set
changes. ReplaceIndex swaps it without touching the selection; identifiers
that are no longer indexed simply resolve to empty lookups.

# Concurrency

The package performs no locking. An Engine must be used from one goroutine at
a time; the session package serializes access per map view.

# Change Notification

Listeners registered with OnChange run synchronously after each observable
change and receive a Change carrying a monotonically increasing generation
number. Consumers that issue asynchronous chart fetches compare generations to
discard results computed for a superseded selection.
*/
package selection
