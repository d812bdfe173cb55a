package eventchat

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// DefaultTypingTTL is how long a typing signal stays active without refresh.
const DefaultTypingTTL = 3 * time.Second

type typingEntry struct {
	name     string
	deadline time.Time
}

// TypingAggregator tracks which participants are actively composing.
//
// Entries are keyed by participant id; the display name travels with the
// entry so two participants sharing a name cannot collide. There is no
// "stopped typing" signal on the wire — entries only leave by TTL expiry,
// so the owner must drive Expire from a recurring tick.
type TypingAggregator struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]typingEntry
	now     func() time.Time
}

func NewTypingAggregator(ttl time.Duration) *TypingAggregator {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingAggregator{
		ttl:     ttl,
		entries: make(map[string]typingEntry),
		now:     time.Now,
	}
}

// Signal inserts or refreshes the entry for a participant, pushing its
// deadline to now + TTL.
func (t *TypingAggregator) Signal(p Participant) {
	t.mu.Lock()
	t.entries[p.ID] = typingEntry{name: p.DisplayName(), deadline: t.now().Add(t.ttl)}
	t.mu.Unlock()
}

// Expire removes every entry whose deadline is at or before now. It reports
// whether the set changed, so callers can skip redundant re-renders.
func (t *TypingAggregator) Expire(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := false
	for id, e := range t.entries {
		if !e.deadline.After(now) {
			delete(t.entries, id)
			changed = true
		}
	}
	return changed
}

// ActiveNames returns the display names of unexpired entries, sorted.
func (t *TypingAggregator) ActiveNames() []string {
	t.mu.Lock()
	now := t.now()
	names := make([]string, 0, len(t.entries))
	for id, e := range t.entries {
		if !e.deadline.After(now) {
			delete(t.entries, id)
			continue
		}
		names = append(names, e.name)
	}
	t.mu.Unlock()
	sort.Strings(names)
	return names
}

// Caption renders the typing indicator line: one name, two names, or a
// count once more than two participants are composing.
func (t *TypingAggregator) Caption() string {
	names := t.ActiveNames()
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing..."
	case 2:
		return names[0] + " and " + names[1] + " are typing..."
	default:
		return strconv.Itoa(len(names)) + " people are typing..."
	}
}
