// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/corridor/internal/chart"
	"github.com/tomtom215/corridor/internal/config"
	"github.com/tomtom215/corridor/internal/dimension"
	"github.com/tomtom215/corridor/internal/events"
	"github.com/tomtom215/corridor/internal/logging"
	"github.com/tomtom215/corridor/internal/models"
	"github.com/tomtom215/corridor/internal/selection"
	"github.com/tomtom215/corridor/internal/session"
	ws "github.com/tomtom215/corridor/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "error",
		Format: "console",
		Output: io.Discard,
	})
}

// corridor: signal A owns 1 and 2, B owns 2 and 3, C owns nothing.
func corridorRecords() []selection.MembershipRecord {
	attrs := func(name string) models.SegmentAttributes {
		return models.SegmentAttributes{SignalName: name, MaintainedBy: "City", Bearing: "NB"}
	}
	return []selection.MembershipRecord{
		{Signal: "A", Segment: selection.Seg(1), Attributes: attrs("A")},
		{Signal: "A", Segment: selection.Seg(2), Attributes: attrs("A")},
		{Signal: "B", Segment: selection.Seg(2), Attributes: attrs("B")},
		{Signal: "B", Segment: selection.Seg(3), Attributes: attrs("B")},
		{Signal: "C", Attributes: attrs("C")},
	}
}

type fakeLoader struct {
	err error
}

func (l *fakeLoader) Load(_ context.Context, f models.GeometryFilter) (*dimension.Snapshot, error) {
	if l.err != nil {
		return nil, l.err
	}
	f = f.Normalized()
	var records []selection.MembershipRecord
	for _, rec := range corridorRecords() {
		if len(f.Signals) == 0 || slices.Contains(f.Signals, string(rec.Signal)) {
			records = append(records, rec)
		}
	}
	return &dimension.Snapshot{
		Filter:   f,
		Key:      f.Key(),
		Records:  records,
		Index:    selection.BuildIndex(records),
		LoadedAt: time.Now(),
	}, nil
}

type fakeCharts struct {
	mu   sync.Mutex
	last chart.Request
	err  error
}

func (c *fakeCharts) Load(_ context.Context, req chart.Request) (*chart.Series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = req
	if c.err != nil {
		return nil, c.err
	}
	n := len(req.Segments)
	if !req.Scoped {
		n = len(req.Displayed)
	}
	return &chart.Series{
		Generation:   req.Generation,
		Scoped:       req.Scoped,
		SegmentCount: n,
		Points: []models.SeriesPoint{
			{Bucket: time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC), TravelTimeSeconds: 42, Samples: int64(n)},
		},
	}, nil
}

func (c *fakeCharts) lastRequest() chart.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

type fakeStore struct {
	err      error
	types    []string
	typesErr error
}

func (s fakeStore) Ping(context.Context) error { return s.err }

func (s fakeStore) AnomalyTypes(context.Context) ([]string, error) {
	return s.types, s.typesErr
}

// hubPublisher hands events straight to the hub, standing in for the bus
// and forwarder.
type hubPublisher struct {
	hub *ws.Hub
}

func (p hubPublisher) Publish(_ context.Context, e events.Event) error {
	if p.hub != nil {
		p.hub.Deliver(e)
	}
	return nil
}

type testEnv struct {
	handler  http.Handler
	manager  *session.Manager
	charts   *fakeCharts
	hub      *ws.Hub
	config   *config.Config
	loader   *fakeLoader
}

type envOption func(*config.Config)

// newTestEnv wires a real session manager behind the router, with the
// store replaced by fakes.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Sessions: config.SessionsConfig{MaxSessions: 16, IdleTTL: time.Hour},
		Security: config.SecurityConfig{RateLimitDisabled: true},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	env := &testEnv{charts: &fakeCharts{}, loader: &fakeLoader{}, config: cfg}
	pub := &hubPublisher{}
	env.manager = session.NewManager(env.loader, env.charts, pub, cfg.Sessions)
	env.hub = ws.NewHub(env.manager, cfg.WebSocket)
	pub.hub = env.hub

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = env.hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h := NewHandler(env.manager, fakeStore{types: []string{"construction", "incident"}}, nil, env.hub, cfg)
	env.handler = NewRouter(h, NewChiMiddleware(ChiMiddlewareConfigFrom(cfg.Security))).Setup()
	return env
}

// do sends a request through the router and decodes the envelope.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp models.APIResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: decode envelope: %v (body %q)", method, path, err, rec.Body.String())
		}
	}
	return rec, resp
}

// createSession opens a session over the whole corridor and returns its id.
func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec, resp := e.do(t, http.MethodPost, "/api/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", rec.Code, rec.Body.String())
	}
	var summary models.SessionSummary
	decodeData(t, resp, &summary)
	return summary.ID
}

// decodeData re-decodes the envelope's data into dst.
func decodeData(t *testing.T, resp models.APIResponse, dst interface{}) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}
