package api

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"impostor-server/internal/config"
	"impostor-server/internal/core"
	"impostor-server/internal/store"
)

// Gateway is the boundary between the transport and the game engine.
// It validates structural input, rate-limits state-changing intents,
// dispatches to the engine, and routes the resulting events through
// the hub.
type Gateway struct {
	engine   *core.Engine
	rooms    *store.RoomStore
	hub      *Hub
	validate *validator.Validate
	chat     *chatLimiter
	cfg      *config.Config
}

func NewGateway(engine *core.Engine, rooms *store.RoomStore, hub *Hub, cfg *config.Config) *Gateway {
	g := &Gateway{
		engine:   engine,
		rooms:    rooms,
		hub:      hub,
		validate: NewValidator(),
		chat:     newChatLimiter(cfg.ChatWindow, cfg.ChatMax, cfg.ChatBlock),
		cfg:      cfg,
	}
	engine.SetBroadcast(g.deliver)
	return g
}

func errorMessage(msg string) core.ErrorPayload {
	return core.ErrorPayload{Message: msg}
}

// Dispatch routes one decoded intent. Authorization failures are
// swallowed; everything else the caller did wrong comes back as an
// error event.
func (g *Gateway) Dispatch(c *client, msg ClientMessage) {
	if msg.Type != "sendChat" && !c.limiter.Allow() {
		log.Warn().Str("conn", c.id).Str("intent", msg.Type).Msg("rate limit exceeded")
		c.enqueue(marshal("error", errorMessage("Too many requests. Please slow down.")))
		return
	}

	switch msg.Type {
	case "createRoom":
		var req CreateRoomRequest
		if !g.decode(c, msg.Data, &req) {
			return
		}
		code, events, err := g.engine.CreateRoom(c.id, trimmed(req.Username))
		if err != nil {
			g.fail(c, err)
			return
		}
		g.hub.join(code, c)
		g.dispatchEvents(c, code, events)

	case "joinRoom":
		var req JoinRoomRequest
		if !g.decode(c, msg.Data, &req) {
			return
		}
		code := normalizeCode(req.RoomCode)
		events, err := g.engine.JoinRoom(c.id, trimmed(req.Username), code)
		if err != nil {
			g.fail(c, err)
			return
		}
		g.hub.join(code, c)
		g.dispatchEvents(c, code, events)

	case "updateConfig":
		var req UpdateConfigRequest
		if !g.decode(c, msg.Data, &req) {
			return
		}
		g.run(c, normalizeCode(req.RoomCode), func(code string) ([]core.Event, error) {
			return g.engine.UpdateConfig(c.id, code, req.Config)
		})

	case "randomCategory":
		g.roomIntent(c, msg.Data, g.engine.RandomCategory)

	case "startGame":
		g.roomIntent(c, msg.Data, g.engine.StartGame)

	case "startVoting":
		g.roomIntent(c, msg.Data, g.engine.StartVoting)

	case "castVote":
		var req VoteRequest
		if !g.decode(c, msg.Data, &req) {
			return
		}
		g.run(c, normalizeCode(req.RoomCode), func(code string) ([]core.Event, error) {
			return g.engine.CastVote(c.id, code, req.VotedFor)
		})

	case "finishVoting":
		g.roomIntent(c, msg.Data, g.engine.FinishVoting)

	case "cancelGame":
		g.roomIntent(c, msg.Data, g.engine.CancelGame)

	case "continueInRoom":
		g.roomIntent(c, msg.Data, g.engine.ContinueInRoom)

	case "sendReaction":
		var req ReactionRequest
		if !g.decode(c, msg.Data, &req) {
			return
		}
		g.run(c, normalizeCode(req.RoomCode), func(code string) ([]core.Event, error) {
			return g.engine.SendReaction(c.id, code, req.Emoji)
		})

	case "sendChat":
		var req ChatRequest
		if !g.decode(c, msg.Data, &req) {
			return
		}
		g.handleChat(c, req)

	default:
		c.enqueue(marshal("error", errorMessage("Unknown event type")))
	}
}

// roomIntent covers the intents that carry only a room code.
func (g *Gateway) roomIntent(c *client, data json.RawMessage, fn func(connID, code string) ([]core.Event, error)) {
	var req RoomRequest
	if !g.decode(c, data, &req) {
		return
	}
	g.run(c, normalizeCode(req.RoomCode), func(code string) ([]core.Event, error) {
		return fn(c.id, code)
	})
}

func (g *Gateway) run(c *client, code string, fn func(code string) ([]core.Event, error)) {
	events, err := fn(code)
	if err != nil {
		g.fail(c, err)
		return
	}
	g.dispatchEvents(c, code, events)
}

func (g *Gateway) decode(c *client, data json.RawMessage, req any) bool {
	if len(data) == 0 {
		c.enqueue(marshal("error", errorMessage("Invalid data: missing payload")))
		return false
	}
	if err := json.Unmarshal(data, req); err != nil {
		c.enqueue(marshal("error", errorMessage("Invalid data: malformed payload")))
		return false
	}
	if err := g.validate.Struct(req); err != nil {
		c.enqueue(marshal("error", errorMessage("Invalid data: "+validationMessage(err))))
		return false
	}
	return true
}

func (g *Gateway) fail(c *client, err error) {
	if core.Silent(err) {
		return
	}
	c.enqueue(marshal("error", errorMessage(err.Error())))
}

// dispatchEvents routes the engine's events: sender-only, private to a
// connection, or to the whole room.
func (g *Gateway) dispatchEvents(c *client, code string, events []core.Event) {
	for _, ev := range events {
		switch {
		case ev.ToSender:
			c.enqueue(marshal(ev.Name, ev.Payload))
		case ev.Target != "":
			g.hub.SendTo(ev.Target, ev.Name, ev.Payload)
		default:
			g.hub.Broadcast(code, ev.Name, ev.Payload)
		}
	}
}

// deliver is the engine's callback for timer-driven events, which have
// no originating connection.
func (g *Gateway) deliver(code string, events []core.Event) {
	for _, ev := range events {
		if ev.Target != "" {
			g.hub.SendTo(ev.Target, ev.Name, ev.Payload)
			continue
		}
		g.hub.Broadcast(code, ev.Name, ev.Payload)
	}
}

// handleDisconnect runs when the read loop ends, for any reason.
func (g *Gateway) handleDisconnect(c *client) {
	g.chat.forget(c.id)

	code, events := g.engine.Disconnect(c.id)
	if code != "" {
		g.dispatchEvents(c, code, events)
		if g.rooms.Get(code) == nil {
			g.hub.dropRoom(code)
		}
	}

	g.hub.unregister(c)
	log.Debug().Str("conn", c.id).Msg("connection closed")
}

func validationMessage(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		switch fe.Tag() {
		case "username":
			return "username must be 2-15 letters, digits or spaces, with at least one letter"
		case "roomcode":
			return "room code must be 4 characters"
		case "required":
			return fe.Field() + " is required"
		}
		return fe.Field() + " is invalid"
	}
	return "invalid payload"
}
