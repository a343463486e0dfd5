package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/swaysim/internal/sway"
)

func dialServer(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitClients(t *testing.T, s *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count stuck at %d, want %d", s.Clients(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServerHandshakeAndBroadcast(t *testing.T) {
	srv := NewServer([]uint32{sway.RootParent, 0, 1})
	ts := httptest.NewServer(http.HandlerFunc(srv.Handler))
	defer ts.Close()

	conn := dialServer(t, ts)
	defer conn.Close()

	var topo Topology
	if err := conn.ReadJSON(&topo); err != nil {
		t.Fatalf("read topology: %v", err)
	}
	if topo.Type != "topology" || topo.Bones != 3 {
		t.Errorf("topology handshake: %+v", topo)
	}
	if len(topo.Parents) != 3 || topo.Parents[0] != sway.RootParent || topo.Parents[2] != 1 {
		t.Errorf("parents in handshake: %v", topo.Parents)
	}

	waitClients(t, srv, 1)

	srv.OnFrame([]sway.Vec3{{0, 2, 0}, {0, 1.9, 0}, {0.05, 1.8, 0}}, 0.5)

	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frame.Type != "frame" || frame.Time != 0.5 {
		t.Errorf("frame header: %+v", frame)
	}
	if len(frame.Positions) != 3 || frame.Positions[2] != [3]float32{0.05, 1.8, 0} {
		t.Errorf("frame positions: %v", frame.Positions)
	}
}

func TestServerDropsDeadClients(t *testing.T) {
	srv := NewServer([]uint32{sway.RootParent, 0})
	ts := httptest.NewServer(http.HandlerFunc(srv.Handler))
	defer ts.Close()

	conn := dialServer(t, ts)
	var topo Topology
	if err := conn.ReadJSON(&topo); err != nil {
		t.Fatalf("read topology: %v", err)
	}
	waitClients(t, srv, 1)

	conn.Close()

	// Broadcasts after the disconnect eventually fail the write and drop
	// the client; the simulation loop never blocks on it.
	deadline := time.Now().Add(2 * time.Second)
	for srv.Clients() != 0 {
		srv.OnFrame([]sway.Vec3{{0, 2, 0}, {0, 1.9, 0}}, 1)
		if time.Now().After(deadline) {
			t.Fatal("dead client never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
