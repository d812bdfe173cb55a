package eventchat

import (
	"sort"
	"sync"
)

// PresenceTracker holds the set of participants currently joined to the
// room's live connection.
type PresenceTracker struct {
	mu      sync.RWMutex
	members map[string]Participant
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{members: make(map[string]Participant)}
}

// Join adds a participant. A repeated join refreshes the stored snapshot and
// is otherwise idempotent.
func (p *PresenceTracker) Join(member Participant) {
	p.mu.Lock()
	p.members[member.ID] = member
	p.mu.Unlock()
}

// Leave removes a participant. Leaving a non-member is a no-op.
func (p *PresenceTracker) Leave(id string) {
	p.mu.Lock()
	delete(p.members, id)
	p.mu.Unlock()
}

// Count is the "N online" number.
func (p *PresenceTracker) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// Participants returns the current member snapshots sorted by id for stable
// rendering.
func (p *PresenceTracker) Participants() []Participant {
	p.mu.RLock()
	out := make([]Participant, 0, len(p.members))
	for _, m := range p.members {
		out = append(out, m)
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
