package game

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/AlrightyTighty/baddle-backend/internal"
	"github.com/AlrightyTighty/baddle-backend/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

var (
	errClientClosed   = errors.New("client closed")
	errSendBufferFull = errors.New("send buffer full")
)

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

type HandlerConfig struct {
	NameLength  int
	CheckOrigin func(r *http.Request) bool
	Logger      *zerolog.Logger
}

// Handler upgrades connections and attaches them to rooms.
type Handler struct {
	registry   *Registry
	upgrader   websocket.Upgrader
	nameLength int
	log        zerolog.Logger
}

func NewHandler(registry *Registry, cfg HandlerConfig) *Handler {
	if cfg.NameLength <= 0 {
		cfg.NameLength = 6
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = func(r *http.Request) bool { return true }
	}
	logger := registry.log
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Handler{
		registry:   registry,
		nameLength: cfg.NameLength,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		log: logger.With().Str("component", "ws").Logger(),
	}
}

// joinRequest is the connection query: name, roomCode, makeRoom and
// selectedIcon.
type joinRequest struct {
	Name     string
	RoomCode string
	MakeRoom bool
	Icon     string
}

func parseJoinRequest(r *http.Request, nameLength int) (joinRequest, error) {
	q := r.URL.Query()

	req := joinRequest{
		Name:     truncateRunes(strings.TrimSpace(q.Get("name")), nameLength),
		RoomCode: strings.ToUpper(strings.TrimSpace(q.Get("roomCode"))),
		MakeRoom: q.Get("makeRoom") == "true",
		Icon:     q.Get("selectedIcon"),
	}

	if req.Name == "" {
		return req, ErrNameRequired
	}
	if !req.MakeRoom && req.RoomCode == "" {
		return req, ErrCodeRequired
	}
	return req, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	c := newClient(conn)
	go c.writePump()

	// 2. Create or join the requested room
	req, err := parseJoinRequest(r, h.nameLength)
	var sess *Session
	var player *internal.Player
	if err == nil {
		player = internal.NewPlayer(utils.GenerateID(), req.Name, req.Icon, c)
		if req.MakeRoom {
			sess, err = h.registry.Create(player)
		} else {
			sess, err = h.registry.Join(r.Context(), req.RoomCode, player)
		}
	}

	// 3. Reject with a close reason
	if err != nil {
		h.log.Info().
			Err(err).
			Str("name", req.Name).
			Str("room", req.RoomCode).
			Msg("connection rejected")
		c.Close(CloseProtocolError, CloseReason(err))
		<-c.stopped
		return
	}

	h.log.Debug().Str("room", sess.Code()).Str("player", player.ID).Msg("connection attached")

	// 4. Read until the client goes away
	h.readPump(c, sess, player.ID)
	sess.Leave(player.ID)
	c.Close(websocket.CloseNormalClosure, "")
	<-c.stopped
}

func (h *Handler) readPump(c *client, sess *Session, playerID string) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("player", playerID).Msg("read error")
			}
			return
		}
		if err := sess.Deliver(playerID, data); err != nil {
			return
		}
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// client is the outbound side of one websocket. Packets are queued on a
// buffered channel and written by a single writer goroutine.
type client struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	stopped chan struct{}

	closeOnce   sync.Once
	closeCode   int
	closeReason string
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Send queues data without blocking. A client that cannot keep up is
// disconnected.
func (c *client) Send(data []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.Close(websocket.ClosePolicyViolation, "Too slow.")
		return errSendBufferFull
	}
}

// Close asks the writer to flush, send a close frame and hang up. Only the
// first call has any effect.
func (c *client) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
	return nil
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.stopped)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-c.done:
			c.flush()
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(c.closeCode, c.closeReason),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

// flush writes whatever is still queued.
func (c *client) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
