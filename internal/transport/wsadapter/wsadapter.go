// Package wsadapter is a minimal reference transport.Transport over
// github.com/coder/websocket, demonstrating the inbound/outbound contract
// spec.md §6 describes without being a full production chat client. Grounded
// on codeready-toolchain-tarsy/pkg/events/manager.go's ConnectionManager
// (connection registry, JSON read loop, sendJSON helper) and
// pkg/api/handler_ws.go's Accept call.
package wsadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/eventbus"
	"github.com/Saguny/projectghost/internal/speech"
)

// clientMessage is the inbound wire shape: one chat message from the single
// owning user.
type clientMessage struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Content  string `json:"content"`
}

// Server accepts WebSocket connections and bridges them to the event bus.
// Per spec.md's single-tenant Non-goal, outbound speech is broadcast to
// every currently connected client rather than addressed by channel.
type Server struct {
	log      zerolog.Logger
	bus      *eventbus.Bus
	governor *speech.Governor

	writeTimeout time.Duration

	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

// New constructs a Server and subscribes it to outbound events. Register
// HandleWS with an HTTP mux; Start blocks until ctx ends and then closes
// open connections.
func New(log zerolog.Logger, bus *eventbus.Bus, governor *speech.Governor) *Server {
	s := &Server{
		log:          log.With().Str("component", "wsadapter").Logger(),
		bus:          bus,
		governor:     governor,
		writeTimeout: 10 * time.Second,
		conns:        make(map[string]*websocket.Conn),
	}
	eventbus.Subscribe(bus, s.handleResponse)
	eventbus.Subscribe(bus, s.handleAutonomous)
	return s
}

// Start implements transport.Transport. The adapter's actual I/O is driven
// by HTTP upgrades via HandleWS, so Start only blocks until ctx is done,
// then closes every live connection.
func (s *Server) Start(ctx context.Context) error {
	<-ctx.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conn := range s.conns {
		_ = conn.Close(websocket.StatusNormalClosure, "server shutting down")
		delete(s.conns, id)
	}
	return ctx.Err()
}

// Send implements transport.Transport by writing chunk to every connected
// client. channelID is accepted for interface compliance but unused: a
// single-tenant agent has no per-channel routing to do.
func (s *Server) Send(ctx context.Context, channelID, chunk string) error {
	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
		err := c.Write(writeCtx, websocket.MessageText, []byte(chunk))
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to write to websocket connection")
		}
	}
	return nil
}

// HandleWS upgrades an HTTP connection and runs its read loop until it
// closes. Register this as an http.HandlerFunc on the bridge's mux.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("websocket accept failed")
		return
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed client message")
			continue
		}
		s.bus.Publish(eventbus.MessageReceived{
			Timestamp: time.Now(),
			UserID:    msg.UserID,
			UserName:  msg.UserName,
			Content:   msg.Content,
			ChannelID: id,
		})
	}
}

func (s *Server) handleResponse(ctx context.Context, event eventbus.ResponseGenerated) {
	if err := s.governor.Deliver(ctx, event.Content, func(chunk string) error {
		return s.Send(ctx, "", chunk)
	}); err != nil {
		s.log.Warn().Err(err).Msg("speech delivery interrupted")
	}
}

func (s *Server) handleAutonomous(ctx context.Context, event eventbus.AutonomousMessageSent) {
	if err := s.governor.Deliver(ctx, event.Content, func(chunk string) error {
		return s.Send(ctx, event.ChannelID, chunk)
	}); err != nil {
		s.log.Warn().Err(err).Msg("autonomous speech delivery interrupted")
	}
}
