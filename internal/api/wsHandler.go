package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var ws = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 64
)

// ClientMessage is the wire envelope for every client→server intent.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter
}

func (c *client) enqueue(data []byte) {
	if data == nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		// Slow consumer; broadcasts carry no delivery guarantee for
		// clients that cannot keep up.
		log.Warn().Str("conn", c.id).Msg("send queue full, dropping event")
	}
}

// HandleWS upgrades the connection and runs the read loop until the
// client goes away.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	socket, err := ws.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    socket,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Every(g.cfg.RateLimitWindow/time.Duration(g.cfg.RateLimitMax)), g.cfg.RateLimitMax),
	}
	g.hub.register(c)

	go c.writePump()
	c.readPump(g)
}

func (c *client) readPump(g *Gateway) {
	defer func() {
		g.handleDisconnect(c)
		close(c.done)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", c.id).Msg("read error")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.enqueue(marshal("error", errorMessage("Invalid message format")))
			continue
		}
		g.Dispatch(c, msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
