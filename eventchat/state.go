package eventchat

// ConnectionState represents the current state of a room's connection.
type ConnectionState int

const (
	// StateDisconnected means the session is not connected. After a drop it
	// is terminal for the session itself; only a Supervisor re-opens.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the session is establishing a connection.
	StateConnecting

	// StateConnected means the session is connected and ready.
	StateConnected

	// StateReconnecting means a supervisor is attempting to re-open the room
	// after a drop.
	StateReconnecting

	// StateAuthRejected means the server refused the credential. Terminal.
	StateAuthRejected

	// StateClosed means the room has been explicitly closed by the caller.
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateAuthRejected:
		return "auth_rejected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateEvent represents a state change event.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // Optional error that caused the state change
}
