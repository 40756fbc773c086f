// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/corridor/internal/chart"
	"github.com/tomtom215/corridor/internal/config"
	"github.com/tomtom215/corridor/internal/dimension"
	"github.com/tomtom215/corridor/internal/events"
	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/metrics"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")

	// ErrLimitReached is returned by Create when MaxSessions are open.
	ErrLimitReached = errors.New("session limit reached")
)

// Loader resolves a geometry filter to a membership snapshot.
type Loader interface {
	Load(ctx context.Context, f models.GeometryFilter) (*dimension.Snapshot, error)
}

// ChartLoader runs chart queries.
type ChartLoader interface {
	Load(ctx context.Context, req chart.Request) (*chart.Series, error)
}

// Manager owns every live session.
type Manager struct {
	loader    Loader
	charts    ChartLoader
	publisher events.Publisher
	cfg       config.SessionsConfig
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. publisher may be nil when nothing listens
// for events.
func NewManager(loader Loader, charts ChartLoader, publisher events.Publisher, cfg config.SessionsConfig, opts ...Option) *Manager {
	m := &Manager{
		loader:    loader,
		charts:    charts,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a session displaying the entities f selects.
func (m *Manager) Create(ctx context.Context, f models.GeometryFilter) (models.SessionSummary, error) {
	if m.cfg.MaxSessions > 0 && m.Count() >= m.cfg.MaxSessions {
		return models.SessionSummary{}, ErrLimitReached
	}

	snap, err := m.loader.Load(ctx, f)
	if err != nil {
		return models.SessionSummary{}, fmt.Errorf("load geometry: %w", err)
	}

	s := newSession(uuid.NewString(), snap, m.now())

	m.mu.Lock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return models.SessionSummary{}, ErrLimitReached
	}
	m.sessions[s.id] = s
	active := len(m.sessions)
	m.mu.Unlock()

	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.Set(float64(active))
	logging.Ctx(ctx).Debug().
		Str("session_id", s.id).
		Str("geometry", snap.Key).
		Msg("Session created")

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary(), nil
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// lookup returns the session locked, or ErrNotFound.
func (m *Manager) lookup(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Get describes a session.
func (m *Manager) Get(id string) (models.SessionSummary, error) {
	s, err := m.lookup(id)
	if err != nil {
		return models.SessionSummary{}, err
	}
	defer s.mu.Unlock()
	return s.summary(), nil
}

// Delete closes a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	active := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	metrics.SessionsActive.Set(float64(active))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	m.publish(ctx, events.New(id, events.KindSessionClosed, s.engine.Generation()))
	logging.Ctx(ctx).Debug().Str("session_id", id).Msg("Session deleted")
	return nil
}

// ToggleSignal toggles a signal in the session's selection.
func (m *Manager) ToggleSignal(ctx context.Context, id string, signal selection.SignalID) (models.SelectionView, error) {
	return m.mutate(ctx, id, func(e *selection.Engine) { e.ToggleSignal(signal) })
}

// ToggleSegment toggles a segment in the session's selection.
func (m *Manager) ToggleSegment(ctx context.Context, id string, segment selection.SegmentID) (models.SelectionView, error) {
	return m.mutate(ctx, id, func(e *selection.Engine) { e.ToggleSegment(segment) })
}

// Clear empties the session's selection.
func (m *Manager) Clear(ctx context.Context, id string) (models.SelectionView, error) {
	return m.mutate(ctx, id, func(e *selection.Engine) { e.ClearAll() })
}

func (m *Manager) mutate(ctx context.Context, id string, op func(*selection.Engine)) (models.SelectionView, error) {
	s, err := m.lookup(id)
	if err != nil {
		return models.SelectionView{}, err
	}
	defer s.mu.Unlock()

	op(s.engine)
	m.flush(ctx, s)
	return s.selectionView(), nil
}

// Selection returns the session's selection and projector outputs.
func (m *Manager) Selection(id string) (models.SelectionView, error) {
	s, err := m.lookup(id)
	if err != nil {
		return models.SelectionView{}, err
	}
	defer s.mu.Unlock()
	return s.selectionView(), nil
}

// Map renders the session's displayed entities with highlight state.
func (m *Manager) Map(id string) (models.MapView, error) {
	s, err := m.lookup(id)
	if err != nil {
		return models.MapView{}, err
	}
	defer s.mu.Unlock()
	return s.mapView(), nil
}

// ApplyGeometryFilter changes the displayed entity set. The index is rebuilt
// and the selection cleared. A filter with the current key changes nothing.
func (m *Manager) ApplyGeometryFilter(ctx context.Context, id string, f models.GeometryFilter) (models.SessionSummary, error) {
	s, err := m.lookup(id)
	if err != nil {
		return models.SessionSummary{}, err
	}
	unchanged := s.snapshot.Key == f.Key()
	if unchanged {
		defer s.mu.Unlock()
		return s.summary(), nil
	}
	s.mu.Unlock()

	snap, err := m.loader.Load(ctx, f)
	if err != nil {
		return models.SessionSummary{}, fmt.Errorf("load geometry: %w", err)
	}

	s, err = m.lookup(id)
	if err != nil {
		return models.SessionSummary{}, err
	}
	defer s.mu.Unlock()
	if s.snapshot.Key == snap.Key {
		return s.summary(), nil
	}

	start := time.Now()
	s.snapshot = snap
	s.geometry = snap.Filter
	s.engine.ReplaceIndex(snap.Index)
	s.engine.ClearAll()
	metrics.RecordIndexBuild("geometry_filter", time.Since(start), snap.Index.PairCount())
	m.flush(ctx, s)

	logging.Ctx(ctx).Debug().
		Str("session_id", id).
		Str("geometry", snap.Key).
		Uint64("generation", s.engine.Generation()).
		Msg("Geometry filter applied")
	return s.summary(), nil
}

// ApplyChartFilter stores a chart-only filter and asks listeners to refetch.
// The selection and index are untouched.
func (m *Manager) ApplyChartFilter(ctx context.Context, id string, f models.ChartFilter) (models.SessionSummary, error) {
	s, err := m.lookup(id)
	if err != nil {
		return models.SessionSummary{}, err
	}
	defer s.mu.Unlock()

	s.chart = f
	e := events.New(id, events.KindRefetch, s.engine.Generation())
	e.Chart = &f
	m.publish(ctx, e)
	return s.summary(), nil
}

// ChartData loads the chart for the session's current selection. The query
// runs without the session lock; if the selection moved on meanwhile the
// result is returned marked Stale.
func (m *Manager) ChartData(ctx context.Context, id string) (*models.ChartSeries, error) {
	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	req := chart.Request{
		Segments:   s.engine.ActiveSegmentFilter(),
		Scoped:     s.engine.HasActiveSelection(),
		Displayed:  s.engine.Index().Segments(),
		Geometry:   s.geometry,
		Filter:     s.chart,
		Generation: s.engine.Generation(),
	}
	s.mu.Unlock()

	series, err := m.charts.Load(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	current := s.engine.Generation()
	s.mu.Unlock()

	out := &models.ChartSeries{
		SessionID:    id,
		Generation:   series.Generation,
		Stale:        current != series.Generation,
		Scoped:       series.Scoped,
		SegmentCount: series.SegmentCount,
		Filter:       req.Filter,
		Points:       series.Points,
	}
	if out.Stale {
		metrics.ChartLoads.WithLabelValues("stale").Inc()
		logging.Ctx(ctx).Debug().
			Str("session_id", id).
			Uint64("requested", series.Generation).
			Uint64("current", current).
			Msg("Chart result superseded by a newer selection")
	}
	return out, nil
}

// flush publishes the changes collected during one operation. Caller holds
// s.mu, which keeps a session's events in order.
func (m *Manager) flush(ctx context.Context, s *Session) {
	for _, c := range s.takePending() {
		if c.Kind == selection.ChangeIndexReplaced {
			e := events.New(s.id, events.KindIndexReplaced, c.Generation)
			geometry := s.geometry
			e.Geometry = &geometry
			e.Selection = &c.Snapshot
			m.publish(ctx, e)
			continue
		}

		metrics.RecordToggle(string(c.Kind), len(c.Snapshot.Segments))
		e := events.New(s.id, events.KindSelectionChanged, c.Generation)
		e.Change = &events.Change{Kind: c.Kind, Signal: c.Signal, Segment: c.Segment, Selected: c.Selected}
		e.Selection = &c.Snapshot
		m.publish(ctx, e)
	}
}

func (m *Manager) publish(ctx context.Context, e events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, e); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("session_id", e.SessionID).
			Str("kind", e.Kind).
			Msg("Failed to publish selection event")
	}
}

// Sweep closes sessions idle for longer than IdleTTL and returns how many
// were closed.
func (m *Manager) Sweep(ctx context.Context) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.cfg.IdleTTL)

	var expired []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range expired {
		if err := m.Delete(ctx, id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		metrics.SessionsExpired.Add(float64(closed))
		logging.Info().Int("expired", closed).Int("active", m.Count()).Msg("Expired idle sessions")
	}
	return closed
}
