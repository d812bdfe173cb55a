package eventchat

import "sync"

// MessageLog is the append-only, arrival-ordered message sequence for one
// room. Arrival order is authoritative; the log never reorders by timestamp.
type MessageLog struct {
	mu   sync.RWMutex
	msgs []Message
	ids  map[int64]struct{}
}

func NewMessageLog() *MessageLog {
	return &MessageLog{ids: make(map[int64]struct{})}
}

// Replay replaces the log contents wholesale. Used once per connection, on
// the history frame that follows connect.
func (l *MessageLog) Replay(msgs []Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = make([]Message, 0, len(msgs))
	l.ids = make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := l.ids[m.ID]; dup {
			continue
		}
		l.ids[m.ID] = struct{}{}
		l.msgs = append(l.msgs, m)
	}
}

// Append adds a message to the tail. Idempotent: a message whose id is
// already present is a no-op and Append reports false.
func (l *MessageLog) Append(m Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.ids[m.ID]; dup {
		return false
	}
	l.ids[m.ID] = struct{}{}
	l.msgs = append(l.msgs, m)
	return true
}

// Messages returns a copy of the log in arrival order.
func (l *MessageLog) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}
