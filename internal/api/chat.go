package api

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"impostor-server/internal/core"
)

// chatLimiter is the chat subsystem's own spam control, independent of
// the intent rate limiter: a sliding window of message timestamps plus
// a short block once the window is exceeded.
type chatLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	block   time.Duration
	history map[string][]time.Time
	blocked map[string]time.Time
}

func newChatLimiter(window time.Duration, max int, block time.Duration) *chatLimiter {
	return &chatLimiter{
		window:  window,
		max:     max,
		block:   block,
		history: make(map[string][]time.Time),
		blocked: make(map[string]time.Time),
	}
}

// allow records one message attempt, returning false while the sender
// is blocked or over the window.
func (l *chatLimiter) allow(connID string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.blocked[connID]; ok {
		if now.Before(until) {
			return false
		}
		delete(l.blocked, connID)
	}

	recent := l.history[connID][:0]
	for _, ts := range l.history[connID] {
		if now.Sub(ts) < l.window {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		l.history[connID] = recent
		l.blocked[connID] = now.Add(l.block)
		return false
	}

	l.history[connID] = append(recent, now)
	return true
}

func (l *chatLimiter) forget(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.history, connID)
	delete(l.blocked, connID)
}

func (g *Gateway) handleChat(c *client, req ChatRequest) {
	room := g.rooms.Get(normalizeCode(req.RoomCode))
	if room == nil {
		return
	}

	name, isSpectator, ok := room.MemberName(c.id)
	if !ok {
		return
	}

	if !g.chat.allow(c.id) {
		c.enqueue(marshal("error", errorMessage(
			fmt.Sprintf("You are sending messages too fast. Wait %d seconds.", int(g.cfg.ChatBlock.Seconds())))))
		return
	}

	g.hub.Broadcast(room.Code, "chatMessage", core.ChatMessagePayload{
		ID:          uuid.NewString(),
		SenderID:    c.id,
		SenderName:  name,
		Content:     strings.TrimSpace(req.Message),
		Timestamp:   time.Now().UnixMilli(),
		IsSpectator: isSpectator,
	})
}
