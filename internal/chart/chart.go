// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

// Package chart loads travel-time series for the current selection through a
// circuit breaker.
package chart

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/corridor/internal/config"
	"github.com/tomtom215/corridor/internal/database"
	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/metrics"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
)

const breakerName = "chart-query"

var (
	// ErrUnavailable is returned while the breaker is open or saturated.
	ErrUnavailable = errors.New("chart data temporarily unavailable")

	// ErrTooManySegments is returned when the segment restriction exceeds
	// the configured maximum.
	ErrTooManySegments = errors.New("too many segments for one chart query")

	// ErrQuery wraps failures of the travel-time query itself.
	ErrQuery = errors.New("chart query failed")
)

// Querier runs the aggregate travel-time query.
type Querier interface {
	TravelTimeSeries(ctx context.Context, q database.ChartQuery) ([]models.SeriesPoint, error)
}

// Request is one chart load.
type Request struct {
	// Segments is the projector's active segment filter.
	Segments []selection.SegmentID

	// Scoped is the projector's HasActiveSelection.
	Scoped bool

	// Displayed is every segment the session shows, used when unscoped.
	Displayed []selection.SegmentID

	// Geometry is the session's geometry filter. Unscoped requests that
	// display more than MaxSegments are restricted through it instead of
	// by listing ids.
	Geometry models.GeometryFilter

	Filter     models.ChartFilter
	Generation uint64
}

// Series is a loaded chart with the generation it was computed for.
type Series struct {
	Generation   uint64
	Scoped       bool
	SegmentCount int
	Points       []models.SeriesPoint
}

// Service executes chart queries.
type Service struct {
	querier Querier
	cfg     config.ChartConfig
	cb      *gobreaker.CircuitBreaker[[]models.SeriesPoint]
}

// NewService wraps querier with a circuit breaker configured from cfg.
func NewService(querier Querier, cfg config.ChartConfig) *Service {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]models.SeriesPoint](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.BreakerFailureRatio {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// Callers abandoning a query say nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Service{querier: querier, cfg: cfg, cb: cb}
}

// Load runs the query for req. Unscoped requests cover the displayed
// segments, or everything when nothing is displayed. MaxSegments caps only
// scoped requests.
func (s *Service) Load(ctx context.Context, req Request) (*Series, error) {
	start := time.Now()

	q := database.ChartQuery{Filter: req.Filter}
	segmentCount := 0
	switch {
	case req.Scoped:
		if s.cfg.MaxSegments > 0 && len(req.Segments) > s.cfg.MaxSegments {
			metrics.RecordChartLoad("error", req.Scoped, time.Since(start))
			return nil, fmt.Errorf("%w: %d > %d", ErrTooManySegments, len(req.Segments), s.cfg.MaxSegments)
		}
		q.Restrict = true
		q.Segments = req.Segments
		segmentCount = len(req.Segments)
	case len(req.Displayed) == 0:
	case s.cfg.MaxSegments > 0 && len(req.Displayed) > s.cfg.MaxSegments:
		geometry := req.Geometry
		q.Geometry = &geometry
		segmentCount = len(req.Displayed)
	default:
		q.Restrict = true
		q.Segments = req.Displayed
		segmentCount = len(req.Displayed)
	}

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	points, err := s.cb.Execute(func() ([]models.SeriesPoint, error) {
		return s.querier.TravelTimeSeries(ctx, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			metrics.RecordChartLoad("breaker_open", req.Scoped, time.Since(start))
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Chart query rejected")
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		metrics.RecordChartLoad("error", req.Scoped, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	metrics.RecordChartLoad("ok", req.Scoped, time.Since(start))

	return &Series{
		Generation:   req.Generation,
		Scoped:       req.Scoped,
		SegmentCount: segmentCount,
		Points:       points,
	}, nil
}

// State returns the breaker state name.
func (s *Service) State() string {
	return s.cb.State().String()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
