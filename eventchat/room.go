package eventchat

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Room is the single authoritative per-room state holder. It composes the
// session, message log, presence tracker, typing aggregator and unread
// counter for one event's chat and dispatches inbound frames between them.
//
// A shell may hold many rooms open at once; each owns its connection and
// state, nothing is shared across rooms.
type Room struct {
	ID        string
	cfg       Config
	localUser Participant
	logger    Logger

	log      *MessageLog
	presence *PresenceTracker
	typing   *TypingAggregator
	unread   *UnreadCounter

	dispatcher Dispatcher

	mu       sync.Mutex
	session  *Session
	expanded bool

	onMessage  func(Message)
	onPresence func(int)
	onTyping   func([]string)
	onUnread   func(int)
	onState    func(StateEvent)
	onError    func(error)
	dropHook   func(StateEvent)

	sweepCancel context.CancelFunc
}

// RoomOption customizes a room before it connects.
type RoomOption func(*Room)

// WithLogger sets the room (and session) logger.
func WithLogger(l Logger) RoomOption {
	return func(r *Room) {
		if l != nil {
			r.logger = l
		}
	}
}

// Open builds the per-room components, connects the session and seeds the
// message log from the history frame that follows. localUser gates unread
// accrual; it comes from the profile store or identity.FromToken.
func Open(ctx context.Context, cfg Config, roomID string, localUser Participant, opts ...RoomOption) (*Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Room{
		ID:        roomID,
		cfg:       cfg,
		localUser: localUser,
		logger:    noopLogger{},
		log:       NewMessageLog(),
		presence:  NewPresenceTracker(),
		typing:    NewTypingAggregator(cfg.TypingTTL),
		unread:    &UnreadCounter{},
	}
	for _, opt := range opts {
		opt(r)
	}

	r.dispatcher.SetLogger(r.logger)
	r.dispatcher.SetOnHistory(r.handleHistory)
	r.dispatcher.SetOnMessage(r.handleMessage)
	r.dispatcher.SetOnJoin(r.handleJoin)
	r.dispatcher.SetOnLeave(r.handleLeave)
	r.dispatcher.SetOnTyping(r.handleTyping)
	r.dispatcher.SetOnError(r.fireError)

	if err := r.connect(ctx); err != nil {
		return nil, err
	}

	sweepCtx, cancel := context.WithCancel(context.Background())
	r.sweepCancel = cancel
	go r.sweepTyping(sweepCtx)

	return r, nil
}

// connect builds a fresh session and dials. Also the supervisor's re-open
// path, so it must leave the room consistent on failure.
func (r *Room) connect(ctx context.Context) error {
	s := newSession(r.cfg, r.ID, r.logger)
	s.OnFrame(r.dispatcher.Dispatch)
	s.OnState(r.handleState)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.session = s
	r.mu.Unlock()
	return nil
}

// Callback registration. Callbacks run on the session's read goroutine (or
// the typing sweeper); keep them short and hand heavy work elsewhere.

func (r *Room) OnMessage(fn func(Message)) { r.mu.Lock(); r.onMessage = fn; r.mu.Unlock() }

// OnPresence fires with the online count whenever membership changes.
func (r *Room) OnPresence(fn func(int)) { r.mu.Lock(); r.onPresence = fn; r.mu.Unlock() }

// OnTyping fires with the active display names whenever the typing set
// changes, including expiries.
func (r *Room) OnTyping(fn func([]string)) { r.mu.Lock(); r.onTyping = fn; r.mu.Unlock() }

// OnUnread fires with the new count whenever unread accrues or resets.
func (r *Room) OnUnread(fn func(int)) { r.mu.Lock(); r.onUnread = fn; r.mu.Unlock() }

func (r *Room) OnState(fn func(StateEvent)) { r.mu.Lock(); r.onState = fn; r.mu.Unlock() }
func (r *Room) OnError(fn func(error))      { r.mu.Lock(); r.onError = fn; r.mu.Unlock() }

// SendMessage trims the body and sends a chat_message frame. A
// whitespace-only body is a silent no-op; outside the Connected state it
// returns ErrNotConnected (ErrClosed after Close) and sends nothing.
func (r *Room) SendMessage(ctx context.Context, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	return r.currentSession().Send(ctx, ClientFrame{
		Type: frameChatMessage,
		Data: SendMessagePayload{Body: body},
	})
}

// SignalTyping sends a typing frame. The room does not throttle; shells that
// signal per keystroke should coalesce at their own boundary — the 3s TTL
// tolerates bursts either way.
func (r *Room) SignalTyping(ctx context.Context) error {
	return r.currentSession().Send(ctx, ClientFrame{Type: frameTyping})
}

// SetExpanded toggles the UI-visibility flag that gates unread accrual. The
// unread counter resets exactly on the collapse -> expand transition. The
// connection is unaffected: a collapsed room keeps receiving everything.
func (r *Room) SetExpanded(expanded bool) {
	r.mu.Lock()
	was := r.expanded
	r.expanded = expanded
	fn := r.onUnread
	r.mu.Unlock()
	if expanded && !was {
		r.unread.OnExpand()
		if fn != nil {
			fn(0)
		}
	}
}

// Expanded reports the current UI-visibility flag.
func (r *Room) Expanded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expanded
}

// State returns the connection state of the current session.
func (r *Room) State() ConnectionState {
	return r.currentSession().State()
}

// Messages returns the log contents in arrival order.
func (r *Room) Messages() []Message { return r.log.Messages() }

// OnlineCount returns the presence set size.
func (r *Room) OnlineCount() int { return r.presence.Count() }

// Unread returns the current unread count.
func (r *Room) Unread() int { return r.unread.Count() }

// Snapshot is a consistent render view of the room.
type Snapshot struct {
	RoomID        string
	State         ConnectionState
	Expanded      bool
	Messages      []Message
	Participants  []Participant
	OnlineCount   int
	TypingNames   []string
	TypingCaption string
	Unread        int
	UnreadBadge   string
}

// Snapshot collects everything a shell needs to render the room.
func (r *Room) Snapshot() Snapshot {
	participants := r.presence.Participants()
	return Snapshot{
		RoomID:        r.ID,
		State:         r.State(),
		Expanded:      r.Expanded(),
		Messages:      r.log.Messages(),
		Participants:  participants,
		OnlineCount:   len(participants),
		TypingNames:   r.typing.ActiveNames(),
		TypingCaption: r.typing.Caption(),
		Unread:        r.unread.Count(),
		UnreadBadge:   r.unread.Badge(),
	}
}

// Close releases the session and stops the typing sweeper. Other open rooms
// are unaffected.
func (r *Room) Close() error {
	if r.sweepCancel != nil {
		r.sweepCancel()
	}
	return r.currentSession().Close()
}

func (r *Room) currentSession() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Inbound dispatch targets.

func (r *Room) handleHistory(msgs []Message) {
	r.log.Replay(msgs)
}

func (r *Room) handleMessage(m Message) {
	if !r.log.Append(m) {
		// Duplicate delivery; counted nothing, rendered nothing.
		return
	}
	r.mu.Lock()
	expanded := r.expanded
	msgFn := r.onMessage
	unreadFn := r.onUnread
	r.mu.Unlock()
	if r.unread.OnMessage(m.Sender.ID, expanded, r.localUser.ID) && unreadFn != nil {
		unreadFn(r.unread.Count())
	}
	if msgFn != nil {
		msgFn(m)
	}
}

func (r *Room) handleJoin(p Participant) {
	r.presence.Join(p)
	r.firePresence()
}

func (r *Room) handleLeave(id string) {
	r.presence.Leave(id)
	r.firePresence()
}

func (r *Room) handleTyping(p Participant) {
	if p.ID == r.localUser.ID {
		return
	}
	r.typing.Signal(p)
	r.fireTyping()
}

func (r *Room) handleState(ev StateEvent) {
	r.mu.Lock()
	stateFn := r.onState
	dropFn := r.dropHook
	r.mu.Unlock()
	if stateFn != nil {
		stateFn(ev)
	}
	if dropFn != nil && ev.NewState == StateDisconnected && ev.OldState == StateConnected {
		dropFn(ev)
	}
}

func (r *Room) setDropHook(fn func(StateEvent)) {
	r.mu.Lock()
	r.dropHook = fn
	r.mu.Unlock()
}

func (r *Room) firePresence() {
	r.mu.Lock()
	fn := r.onPresence
	r.mu.Unlock()
	if fn != nil {
		fn(r.presence.Count())
	}
}

func (r *Room) fireTyping() {
	r.mu.Lock()
	fn := r.onTyping
	r.mu.Unlock()
	if fn != nil {
		fn(r.typing.ActiveNames())
	}
}

func (r *Room) fireError(err error) {
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	if fn != nil && err != nil {
		fn(err)
	}
}

// sweepTyping expires typing entries at least once per second so indicators
// disappear without an explicit stop signal.
func (r *Room) sweepTyping(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if r.typing.Expire(now) {
				r.fireTyping()
			}
		case <-ctx.Done():
			return
		}
	}
}
