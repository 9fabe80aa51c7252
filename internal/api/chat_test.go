package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChatLimiter_AllowsUpToMax(t *testing.T) {
	req := require.New(t)

	l := newChatLimiter(time.Minute, 3, time.Minute)
	for i := 0; i < 3; i++ {
		req.True(l.allow("conn1"))
	}
	req.False(l.allow("conn1"))

	// Other connections are tracked independently.
	req.True(l.allow("conn2"))
}

func TestChatLimiter_BlockExpires(t *testing.T) {
	req := require.New(t)

	l := newChatLimiter(40*time.Millisecond, 2, 30*time.Millisecond)
	req.True(l.allow("conn1"))
	req.True(l.allow("conn1"))
	req.False(l.allow("conn1"))
	req.False(l.allow("conn1"))

	// After both the block and the window lapse the sender can speak
	// again.
	time.Sleep(60 * time.Millisecond)
	req.True(l.allow("conn1"))
}

func TestChatLimiter_Forget(t *testing.T) {
	req := require.New(t)

	l := newChatLimiter(time.Minute, 1, time.Minute)
	req.True(l.allow("conn1"))
	req.False(l.allow("conn1"))

	l.forget("conn1")
	req.True(l.allow("conn1"))
}
