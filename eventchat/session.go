package eventchat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/mapmeet/eventchat-sdk-go/eventchat/internal"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// statusAuthRejected is the close status the chat service uses when it drops
// a socket whose credential stopped being acceptable after the handshake.
const statusAuthRejected websocket.StatusCode = 4401

// Session owns the duplex connection for exactly one room. It translates
// wire frames to typed events and back; it holds no room state itself.
//
// Lifecycle is Disconnected -> Connecting -> Connected -> Disconnected, and
// Disconnected after a drop is terminal for the session. Re-opening a room
// is the Supervisor's job, never the session's.
type Session struct {
	cfg     Config
	roomID  string
	logger  Logger
	id      string // correlation id for log lines
	conn    *internal.Conn
	writeCh chan ClientFrame

	mu      sync.Mutex
	state   ConnectionState
	cancel  context.CancelFunc
	onFrame func(ServerFrame)
	onState func(StateEvent)
}

func newSession(cfg Config, roomID string, logger Logger) *Session {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Session{
		cfg:     cfg,
		roomID:  roomID,
		logger:  logger,
		id:      uuid.NewString(),
		state:   StateDisconnected,
		writeCh: make(chan ClientFrame, cfg.SendBuffer),
	}
}

// OnFrame registers the handler that receives every successfully parsed
// inbound frame in arrival order. Register before Connect.
func (s *Session) OnFrame(fn func(ServerFrame)) {
	s.mu.Lock()
	s.onFrame = fn
	s.mu.Unlock()
}

// OnState registers an observer of connection state transitions.
func (s *Session) OnState(fn func(StateEvent)) {
	s.mu.Lock()
	s.onState = fn
	s.mu.Unlock()
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials the room endpoint with the bearer credential and starts the
// internal loops. A refused credential surfaces as ErrorAuthRejected; any
// other establishment failure as ErrorConnection.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		st := s.state
		s.mu.Unlock()
		return NewError(ErrorConnection, "session already used (state "+st.String()+")")
	}
	s.mu.Unlock()
	s.setState(StateConnecting, nil)

	endpoint, err := s.endpoint()
	if err != nil {
		s.setState(StateDisconnected, err)
		return WrapError(ErrorConnection, "malformed endpoint", err)
	}

	dialCtx := ctx
	if s.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
		defer cancel()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.cfg.Token)
	ws, resp, err := websocket.Dial(dialCtx, endpoint, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			s.setState(StateAuthRejected, err)
			return WrapError(ErrorAuthRejected, "credential refused at handshake", err)
		}
		s.setState(StateDisconnected, err)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return WrapError(ErrorTimeout, "handshake deadline exceeded", err)
		}
		return WrapError(ErrorConnection, "dial "+endpoint, err)
	}

	s.conn = internal.NewConn(ws, s.cfg.ReadTimeout, s.cfg.WriteTimeout)

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	s.setState(StateConnected, nil)

	go s.readLoop(runCtx)
	go s.writeLoop(runCtx)
	return nil
}

// Send serializes and transmits a client frame. Outside the Connected state
// it fails with ErrNotConnected (ErrClosed after an explicit Close) and
// transmits nothing.
func (s *Session) Send(ctx context.Context, frame ClientFrame) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	switch state {
	case StateConnected:
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotConnected
	}

	select {
	case s.writeCh <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the session down and closes the socket. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	prev := s.state
	s.state = StateClosed
	fn := s.onState
	s.mu.Unlock()
	if fn != nil {
		fn(StateEvent{OldState: prev, NewState: StateClosed})
	}
	if s.conn != nil {
		return s.conn.Close(websocket.StatusNormalClosure, "room closed")
	}
	return nil
}

func (s *Session) endpoint() (string, error) {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("base URL missing scheme or host")
	}
	return u.JoinPath("rooms", s.roomID, "chat").String(), nil
}

func (s *Session) setState(next ConnectionState, cause error) {
	s.mu.Lock()
	if s.state == StateClosed || s.state == next {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = next
	fn := s.onState
	s.mu.Unlock()
	if fn != nil {
		fn(StateEvent{OldState: prev, NewState: next, Error: cause})
	}
}

func (s *Session) readLoop(ctx context.Context) {
	// Whatever ends the read loop also ends the write loop; otherwise every
	// dropped connection would leave a goroutine parked on the write channel.
	defer s.cancelRun()
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			switch {
			case isExpectedDisconnect(ctx, err):
				s.setState(StateDisconnected, nil)
			case websocket.CloseStatus(err) == statusAuthRejected,
				websocket.CloseStatus(err) == websocket.StatusPolicyViolation:
				s.logger.Warn("credential refused, closing room", s.fields("error", err.Error()))
				s.setState(StateAuthRejected, WrapError(ErrorAuthRejected, "server closed session", err))
			default:
				s.logger.Warn("read loop exit", s.fields("error", err.Error()))
				s.setState(StateDisconnected, WrapError(ErrorConnection, "connection lost", err))
			}
			return
		}
		if typ != websocket.MessageText {
			s.logger.Warn("malformed frame dropped", s.fields("reason", "non-text message"))
			continue
		}
		frame, err := decodeServerFrame(data)
		if err != nil {
			s.logger.Warn("malformed frame dropped", s.fields("error", err.Error()))
			continue
		}
		s.mu.Lock()
		fn := s.onFrame
		s.mu.Unlock()
		if fn != nil {
			fn(frame)
		}
	}
}

func (s *Session) writeLoop(ctx context.Context) {
	defer s.cancelRun()
	for {
		select {
		case frame := <-s.writeCh:
			if err := s.conn.Write(ctx, frame); err != nil {
				if !isExpectedDisconnect(ctx, err) {
					s.logger.Warn("write loop exit", s.fields("error", err.Error()))
					s.setState(StateDisconnected, WrapError(ErrorConnection, "write failed", err))
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) cancelRun() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) fields(kv ...any) map[string]any {
	f := map[string]any{"session": s.id, "room": s.roomID}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			f[k] = kv[i+1]
		}
	}
	return f
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
