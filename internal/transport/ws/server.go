// Package ws streams conversation changes to browser viewers.
package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
	"github.com/xiaot623/gogo/chatwidget/internal/service"
)

// Options tunes connection keepalive.
type Options struct {
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

// DefaultOptions matches the configuration defaults.
var DefaultOptions = Options{
	PingInterval:   30 * time.Second,
	WriteTimeout:   10 * time.Second,
	ReadTimeout:    60 * time.Second,
	MaxMessageSize: 65536,
}

// Server handles viewer connections for one session.
type Server struct {
	svc       *service.Service
	sessionID string
	hub       *Hub
	opts      Options
	upgrader  websocket.Upgrader
}

// NewServer creates the viewer endpoint and subscribes it to svc. The hub
// must be running.
func NewServer(svc *service.Service, sessionID string, h *Hub, opts Options) *Server {
	s := &Server{
		svc:       svc,
		sessionID: sessionID,
		hub:       h,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The widget is embedded on arbitrary pages.
				return true
			},
		},
	}

	svc.Store().OnAppend(s.publishMessage)
	svc.OnBusyChange(s.publishBusy)
	return s
}

func (s *Server) publishMessage(msg domain.Message) {
	ev := newEvent(TypeMessageAppended, s.sessionID)
	ev.Message = &msg
	if err := s.hub.BroadcastJSON(ev); err != nil {
		log.Error().Err(err).Msg("failed to broadcast message")
	}
}

func (s *Server) publishBusy(busy bool) {
	ev := newEvent(TypeBusy, s.sessionID)
	ev.Busy = &busy
	if err := s.hub.BroadcastJSON(ev); err != nil {
		log.Error().Err(err).Msg("failed to broadcast busy state")
	}
}

// HandleWebSocket upgrades the request and sends the current snapshot.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("failed to upgrade websocket")
		return err
	}

	conn := s.hub.NewConnection(ws)
	if !s.hub.Register(conn) {
		ws.Close()
		return nil
	}
	ws.SetReadLimit(s.opts.MaxMessageSize)

	// Registered before the snapshot is taken, so nothing is lost; viewers
	// dedupe by message ID.
	busy := s.svc.Busy()
	snap := newEvent(TypeSnapshot, s.sessionID)
	snap.Messages = s.svc.Store().Snapshot()
	snap.Busy = &busy
	if err := s.hub.SendJSON(conn, snap); err != nil {
		if errors.Is(err, ErrNotRegistered) {
			// Hub stopped while upgrading.
			ws.Close()
			return nil
		}
		log.Warn().Err(err).Str("conn_id", conn.ID).Msg("failed to queue snapshot")
	}

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump drains the socket so control frames are processed. Viewers are
// read-only; data frames are ignored.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.Conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("conn_id", conn.ID).Msg("websocket read error")
			}
			return
		}
	}
}

func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			deadline := time.Now().Add(s.opts.WriteTimeout)
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{}, deadline)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message, deadline); err != nil {
				log.Debug().Err(err).Str("conn_id", conn.ID).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil, time.Now().Add(s.opts.WriteTimeout)); err != nil {
				return
			}
		}
	}
}
