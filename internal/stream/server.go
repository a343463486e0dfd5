// Package stream broadcasts pose frames to websocket viewers.
package stream

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/san-kum/swaysim/internal/sway"
)

// Frame is the wire message sent once per simulation frame.
type Frame struct {
	Type      string       `json:"type"`
	Time      float64      `json:"time"`
	Positions [][3]float32 `json:"positions"`
}

// Topology is sent once on connect so viewers can draw the chain links.
type Topology struct {
	Type    string   `json:"type"`
	Bones   int      `json:"bones"`
	Parents []uint32 `json:"parents"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server fans frames out to connected clients. It implements sim.Observer;
// register it on a simulator and serve its handler. Slow clients are dropped
// rather than allowed to stall the simulation loop.
type Server struct {
	topology Topology

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

func NewServer(parents []uint32) *Server {
	return &Server{
		topology: Topology{
			Type:    "topology",
			Bones:   len(parents),
			Parents: parents,
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Clients returns the number of connected viewers.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Handler upgrades the request and keeps the connection registered until the
// client disconnects.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	if err := conn.WriteJSON(s.topology); err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = connMu
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	// Drain client messages; the read error is the disconnect signal.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// OnFrame broadcasts one pose snapshot to every client.
func (s *Server) OnFrame(positions []sway.Vec3, t float64) {
	frame := Frame{
		Type:      "frame",
		Time:      t,
		Positions: make([][3]float32, len(positions)),
	}
	for i, p := range positions {
		frame.Positions[i] = [3]float32{p.X(), p.Y(), p.Z()}
	}

	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	mus := make([]*sync.Mutex, 0, len(s.clients))
	for conn, mu := range s.clients {
		conns = append(conns, conn)
		mus = append(mus, mu)
	}
	s.mu.RUnlock()

	for i, conn := range conns {
		mus[i].Lock()
		err := conn.WriteJSON(frame)
		mus[i].Unlock()
		if err != nil {
			conn.Close()
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
		}
	}
}

// ListenAndServe serves the websocket endpoint at /ws and a landing page at
// / that names the endpoint.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.Handler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "swaysim stream: connect a websocket client to /ws")
	})
	return http.ListenAndServe(addr, mux)
}
