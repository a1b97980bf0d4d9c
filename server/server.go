// Package server exposes a running game over HTTP and websockets: a snapshot
// stream for viewers and a small set of control messages.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/game"
	"github.com/pthm-cable/forage/grid"
)

// writeWait bounds how long one client write may block a broadcast.
const writeWait = 5 * time.Second

// ErrUnknownMessage is returned for a control message with an unknown type.
var ErrUnknownMessage = errors.New("unknown message type")

// Simulation is the part of the game the server drives.
type Simulation interface {
	Snapshot() game.Snapshot
	Start()
	Pause()
	Resume()
	Reset(cfg *config.Config) error
	ResetSeed(cfg *config.Config, seed int64) error
	SpawnResource(kind grid.Kind, count int) (int, error)
}

// Message is a control message sent by a client.
type Message struct {
	Type  string `json:"type"`            // start, pause, resume, reset, spawn
	Kind  string `json:"kind,omitempty"`  // spawn: tree, rock or food (default food)
	Count int    `json:"count,omitempty"` // spawn: cells to place (default 1)
	Seed  *int64 `json:"seed,omitempty"`  // reset: reseed the world RNG
}

// Reply answers one control message.
type Reply struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Placed int    `json:"placed,omitempty"`
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Server streams snapshots to websocket clients and applies their controls.
type Server struct {
	sim    Simulation
	logger *slog.Logger

	clientsMu sync.Mutex
	clients   map[*client]struct{}
}

// New creates a server for sim. A nil logger uses slog.Default.
func New(sim Simulation, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sim:     sim,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP routes: /ws for the websocket and /state for a
// single JSON snapshot.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/state", s.handleState)
	return mux
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// Broadcast sends the current snapshot to every client. Clients whose write
// fails are dropped.
func (s *Server) Broadcast() {
	s.clientsMu.Lock()
	if len(s.clients) == 0 {
		s.clientsMu.Unlock()
		return
	}
	list := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		list = append(list, c)
	}
	s.clientsMu.Unlock()

	snap := s.sim.Snapshot()
	for _, c := range list {
		if err := c.send(snap); err != nil {
			s.logger.Warn("client send failed", "error", err)
			s.drop(c)
		}
	}
}

func (s *Server) drop(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()
	c.conn.Close()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.sim.Snapshot()); err != nil {
		s.logger.Error("failed to encode state", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn}
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()
	s.logger.Info("client connected", "remote", r.RemoteAddr)

	if err := c.send(s.sim.Snapshot()); err != nil {
		s.drop(c)
		return
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}

		reply := s.apply(msg)
		if err := c.send(reply); err != nil {
			break
		}
		if reply.OK && (msg.Type == "reset" || msg.Type == "spawn") {
			s.Broadcast()
		}
	}

	s.drop(c)
	s.logger.Info("client disconnected", "remote", r.RemoteAddr)
}

// apply executes one control message against the simulation.
func (s *Server) apply(msg Message) Reply {
	var placed int
	if err := s.dispatch(msg, &placed); err != nil {
		return Reply{Error: err.Error()}
	}
	return Reply{OK: true, Placed: placed}
}

func (s *Server) dispatch(msg Message, placed *int) error {
	switch msg.Type {
	case "start":
		s.sim.Start()
	case "pause":
		s.sim.Pause()
	case "resume":
		s.sim.Resume()
	case "reset":
		if msg.Seed != nil {
			return s.sim.ResetSeed(nil, *msg.Seed)
		}
		return s.sim.Reset(nil)
	case "spawn":
		kind := grid.Food
		if msg.Kind != "" {
			k, err := grid.ParseKind(msg.Kind)
			if err != nil {
				return err
			}
			kind = k
		}
		count := msg.Count
		if count == 0 {
			count = 1
		}
		n, err := s.sim.SpawnResource(kind, count)
		if err != nil {
			return err
		}
		*placed = n
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return nil
}
