package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leonardotrapani/livecc/internal/events"
	"github.com/leonardotrapani/livecc/internal/metrics"
	"github.com/leonardotrapani/livecc/internal/testutil"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return m
}

func TestBroadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(New(hub, nil).Handler())
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	testutil.WaitForCondition(t, func() bool { return hub.Clients() == 2 }, 2*time.Second)

	hub.EmitStatus("Listening to system audio...")
	hub.EmitSegment(events.Segment{SessionID: "s1", TimeRange: "[00:00:03]", Text: "hello", Index: 0})
	hub.EmitError("Transcription error: boom")

	for _, conn := range []*websocket.Conn{a, b} {
		if m := readMessage(t, conn); m.Type != "status" || m.Message != "Listening to system audio..." {
			t.Errorf("first message = %+v", m)
		}
		m := readMessage(t, conn)
		if m.Type != "segment" || m.Segment == nil || m.Segment.Text != "hello" || m.Segment.TimeRange != "[00:00:03]" {
			t.Errorf("second message = %+v", m)
		}
		if m := readMessage(t, conn); m.Type != "error" || m.Message != "Transcription error: boom" {
			t.Errorf("third message = %+v", m)
		}
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(New(hub, nil).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	testutil.WaitForCondition(t, func() bool { return hub.Clients() == 1 }, 2*time.Second)

	conn.Close()
	testutil.WaitForCondition(t, func() bool { return hub.Clients() == 0 }, 2*time.Second)

	// broadcasting with nobody connected is fine
	hub.EmitStatus("Transcription stopped")
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	c := &client{remote: "test", send: make(chan []byte, clientBuffer)}
	hub.register(c)

	for i := 0; i < clientBuffer; i++ {
		hub.EmitStatus("tick")
	}
	if hub.Clients() != 1 {
		t.Fatal("client dropped before its buffer filled")
	}

	hub.EmitStatus("one too many")
	if hub.Clients() != 0 {
		t.Fatal("slow client still registered")
	}
	for range c.send {
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(New(hub, nil).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	testutil.WaitForCondition(t, func() bool { return hub.Clients() == 1 }, 2*time.Second)

	hub.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want going-away close", err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	m.RecordSegment()
	srv := httptest.NewServer(New(NewHub(), m).Handler())
	defer srv.Close()

	tests := []struct {
		path     string
		contains string
	}{
		{"/healthz", "ok"},
		{"/metrics", "livecc_segments_emitted_total 1"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), tt.contains) {
				t.Errorf("GET %s = %d %q", tt.path, resp.StatusCode, body)
			}
		})
	}

	t.Run("no metrics registry", func(t *testing.T) {
		bare := httptest.NewServer(New(NewHub(), nil).Handler())
		defer bare.Close()
		resp, err := http.Get(bare.URL + "/metrics")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET /metrics = %d, want 404", resp.StatusCode)
		}
	})
}

func TestServeStopsWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(NewHub(), nil).Serve(ctx, ln) }()

	testutil.WaitForCondition(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
