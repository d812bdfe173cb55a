package eventchat

import (
	"strconv"
	"sync"
)

// UnreadCounter counts inbound messages that arrived while the room view was
// collapsed. It is per room and purely in-memory; cross-device read state is
// owned by the read-state service, not this counter.
type UnreadCounter struct {
	mu sync.Mutex
	n  int
}

// OnMessage increments the counter iff the room is collapsed and the sender
// is someone else. It reports whether the count changed.
func (u *UnreadCounter) OnMessage(senderID string, expanded bool, localID string) bool {
	if expanded || senderID == localID {
		return false
	}
	u.mu.Lock()
	u.n++
	u.mu.Unlock()
	return true
}

// OnExpand resets the counter. Call exactly once per collapse -> expand
// transition, not on every render.
func (u *UnreadCounter) OnExpand() {
	u.mu.Lock()
	u.n = 0
	u.mu.Unlock()
}

func (u *UnreadCounter) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.n
}

// Badge renders the counter for display: empty at zero, "99+" above 99.
func (u *UnreadCounter) Badge() string {
	n := u.Count()
	switch {
	case n == 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}
