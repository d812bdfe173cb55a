package eventchat

import "encoding/json"

const (
	// Server -> client discriminants.
	frameChatHistory = "chat_history"
	frameChatMessage = "chat_message"
	frameUserJoin    = "user_join"
	frameUserLeave   = "user_leave"
	frameUserTyping  = "user_typing"

	// Client -> server discriminants. chat_message is shared.
	frameTyping = "typing"
)

// ClientFrame is the envelope client -> server.
type ClientFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ServerFrame is the envelope server -> client. Data stays raw until the
// dispatcher decodes it against the discriminant; a frame whose Type matches
// no known discriminant is the "unrecognized" variant and is dropped by the
// dispatcher.
type ServerFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// HistoryPayload seeds the message log right after the connection opens.
type HistoryPayload struct {
	Messages []Message `json:"messages"`
}

// LeavePayload carries only the participant id; the server does not resend
// the full snapshot on leave.
type LeavePayload struct {
	ID string `json:"id"`
}

// SendMessagePayload is the body of an outbound chat_message frame.
type SendMessagePayload struct {
	Body string `json:"body"`
}

func decodeServerFrame(data []byte) (ServerFrame, error) {
	var f ServerFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ServerFrame{}, err
	}
	return f, nil
}
