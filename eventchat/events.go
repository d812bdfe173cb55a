package eventchat

import (
	"strings"
	"time"
)

// Participant is the identity snapshot carried on message, presence and
// typing frames. Fields beyond ID reflect the moment the frame was produced
// and are not guaranteed current.
type Participant struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DisplayName joins the name parts for rendering.
func (p Participant) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Message is one chat message. Immutable once received. IDs are assigned by
// the server and increase by arrival order, not necessarily contiguously.
type Message struct {
	ID        int64       `json:"id"`
	Sender    Participant `json:"sender"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
}
