// Package web exposes a live status endpoint for a running simulation:
// every emitted event is pushed to connected websocket clients and the
// current vehicle snapshot is served as JSON.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/anggasct/roadsim"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeTimeout = 2 * time.Second

// StatusServer broadcasts simulation events over websockets and serves
// state snapshots. It implements roadsim.Sink; Notify never blocks the
// simulation loop beyond the per-client write deadline.
type StatusServer struct {
	sim    *roadsim.Simulation
	logger *log.Logger
	server *http.Server

	clientsMutex sync.Mutex
	clients      map[*websocket.Conn]bool
}

// NewStatusServer creates a status server for the given simulation
func NewStatusServer(sim *roadsim.Simulation, addr string, logger *log.Logger) *StatusServer {
	s := &StatusServer{
		sim:     sim,
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWs)
	mux.HandleFunc("/api/state", s.handleState)
	s.server = &http.Server{Addr: addr, Handler: mux}

	return s
}

// Handler returns the HTTP handler, mainly for tests
func (s *StatusServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called
func (s *StatusServer) Start() error {
	s.logger.Info("status server starting", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server and disconnects every client
func (s *StatusServer) Shutdown(ctx context.Context) error {
	s.clientsMutex.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.clientsMutex.Unlock()

	return s.server.Shutdown(ctx)
}

// Notify implements the roadsim.Sink interface by pushing the event to
// every connected client
func (s *StatusServer) Notify(event roadsim.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal event", "err", err)
		return
	}

	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Warn("websocket write failed, dropping client", "err", err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *StatusServer) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "err", err)
		return
	}

	s.clientsMutex.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMutex.Unlock()

	s.logger.Info("websocket client connected", "total", total)

	go s.readLoop(conn)
}

// readLoop discards client messages and reaps the connection on error
func (s *StatusServer) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.clientsMutex.Lock()
		delete(s.clients, conn)
		remaining := len(s.clients)
		s.clientsMutex.Unlock()
		s.logger.Info("websocket client disconnected", "remaining", remaining)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket error", "err", err)
			}
			return
		}
	}
}

// statePayload is the JSON shape of a snapshot response
type statePayload struct {
	Phase    string         `json:"phase"`
	Fault    string         `json:"fault,omitempty"`
	Vehicles []vehicleState `json:"vehicles"`
}

type vehicleState struct {
	ID     int    `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	Status string `json:"status"`
	Moving bool   `json:"moving"`
}

func (s *StatusServer) handleState(w http.ResponseWriter, r *http.Request) {
	payload := statePayload{
		Phase: s.sim.Phase().String(),
	}
	if err := s.sim.Err(); err != nil {
		payload.Fault = err.Error()
	}
	for _, v := range s.sim.Snapshot() {
		payload.Vehicles = append(payload.Vehicles, vehicleState{
			ID:     v.ID,
			X:      v.X,
			Y:      v.Y,
			Color:  v.Color,
			Status: string(v.Status),
			Moving: v.Moving,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(payload)
}
