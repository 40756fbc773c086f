// Corridor - Traffic Signal Analytics and Corridor Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corridor

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/corridor/internal/events"
	"github.com/tomtom215/corridor/internal/selection"
	ws "github.com/tomtom215/corridor/internal/websocket"
)

type wsFrame struct {
	Type string       `json:"type"`
	Data events.Event `json:"data"`
}

func dialSession(t *testing.T, srv *httptest.Server, sessionID, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?session=" + sessionID
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f wsFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}
	return f
}

func waitForClients(t *testing.T, hub *ws.Hub, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SessionClientCount(sessionID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("session %s has %d clients, want %d", sessionID, hub.SessionClientCount(sessionID), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocket_LiveSelection(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	id := env.createSession(t)
	conn, _, err := dialSession(t, srv, id, srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForClients(t, env.hub, id, 1)

	// A REST toggle reaches the socket.
	env.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/signals/A/toggle", nil)
	f := readFrame(t, conn)
	if f.Type != events.KindSelectionChanged || f.Data.Change == nil || f.Data.Change.Signal != "A" {
		t.Fatalf("frame = %+v", f)
	}
	if f.Data.Selection == nil || len(f.Data.Selection.Segments) != 2 {
		t.Errorf("selection in frame = %+v", f.Data.Selection)
	}
	firstGen := f.Data.Generation

	// A socket command mutates the same session.
	if err := conn.WriteJSON(ws.Command{Type: ws.CommandToggleSegment, Segment: 3}); err != nil {
		t.Fatal(err)
	}
	f = readFrame(t, conn)
	if f.Type != events.KindSelectionChanged || f.Data.Change == nil || f.Data.Change.Segment != selection.SegmentID(3) {
		t.Fatalf("frame = %+v", f)
	}
	if f.Data.Generation != firstGen+1 {
		t.Errorf("generation = %d, want %d", f.Data.Generation, firstGen+1)
	}

	// Deleting the session notifies and disconnects.
	env.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	f = readFrame(t, conn)
	if f.Type != events.KindSessionClosed {
		t.Fatalf("frame = %+v, want session_closed", f)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) {
		t.Errorf("read after close = %v, want close frame", err)
	}
}

func TestWebSocket_Rejections(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)
	id := env.createSession(t)

	tests := []struct {
		name    string
		session string
		origin  string
		status  int
	}{
		{"unknown session", "missing", srv.URL, http.StatusNotFound},
		{"no session parameter", "", srv.URL, http.StatusBadRequest},
		{"no origin", id, "", http.StatusForbidden},
		{"foreign origin", id, "https://evil.example", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := dialSession(t, srv, tt.session, tt.origin)
			if err == nil {
				t.Fatal("dial succeeded")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("response = %v, want status %d", resp, tt.status)
			}
		})
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		host    string
		origin  string
		want    bool
	}{
		{"same host", nil, "corridor.local:3857", "http://corridor.local:3857", true},
		{"missing origin", nil, "corridor.local", "", false},
		{"configured origin", []string{"https://maps.example.org"}, "api.example.org", "https://maps.example.org", true},
		{"wildcard", []string{"*"}, "api.example.org", "https://anything.test", true},
		{"not configured", []string{"https://maps.example.org"}, "api.example.org", "https://other.example.org", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{config: newConfigWithOrigins(tt.allowed)}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}
