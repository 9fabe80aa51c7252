package core

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ReconnectionManager arms one grace-period timer per disconnected
// player, keyed by username and room code. Reconnection cancels the
// timer; expiry calls back into the engine, which re-validates the
// player is still disconnected before tearing anything down.
type ReconnectionManager struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	grace  time.Duration
	expire func(username, roomCode string)
}

func NewReconnectionManager(grace time.Duration, expire func(username, roomCode string)) *ReconnectionManager {
	return &ReconnectionManager{
		timers: make(map[string]*time.Timer),
		grace:  grace,
		expire: expire,
	}
}

func timerKey(username, roomCode string) string {
	return strings.ToLower(username) + "-" + roomCode
}

// Arm starts (or restarts) the grace timer for a player.
func (m *ReconnectionManager) Arm(username, roomCode string) {
	key := timerKey(username, roomCode)

	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[key]; ok {
		t.Stop()
	}
	m.timers[key] = time.AfterFunc(m.grace, func() {
		m.mu.Lock()
		delete(m.timers, key)
		m.mu.Unlock()

		log.Info().Str("player", username).Str("room", roomCode).Msg("grace period expired")
		m.expire(username, roomCode)
	})
}

// Cancel stops a pending timer, reporting whether one existed.
func (m *ReconnectionManager) Cancel(username, roomCode string) bool {
	key := timerKey(username, roomCode)

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(m.timers, key)
	return true
}

// CancelRoom drops every pending timer for a room, used when the room
// itself is destroyed.
func (m *ReconnectionManager) CancelRoom(roomCode string) {
	suffix := "-" + roomCode

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, t := range m.timers {
		if strings.HasSuffix(key, suffix) {
			t.Stop()
			delete(m.timers, key)
		}
	}
}
