package eventchat

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config controls how the SDK connects. One Config is shared by every room a
// shell opens; the room id is supplied per Open call.
type Config struct {
	// BaseURL is the websocket endpoint root, e.g. "wss://api.mapmeet.app/ws".
	// The per-room path is appended by the session.
	BaseURL string `validate:"required,uri"`
	// Token is the opaque bearer credential issued by the account service.
	Token string `validate:"required"`

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// TypingTTL is how long a typing signal stays active without a refresh.
	TypingTTL time.Duration `validate:"min=0"`
	// SendBuffer is the outbound frame queue capacity per room.
	SendBuffer int `validate:"min=1"`
}

// DefaultConfig returns sensible defaults. BaseURL and Token must still be
// filled in by the caller.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		TypingTTL:        3 * time.Second,
		SendBuffer:       16,
	}
}

// Validate reports whether the config can open a session.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return WrapError(ErrorInvalidConfig, "invalid config", err)
	}
	return nil
}
