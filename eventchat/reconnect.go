package eventchat

import (
	"context"
	"math/rand"
	"time"
)

// BackoffPolicy controls the supervisor's retry schedule.
type BackoffPolicy struct {
	// Base is the first retry delay; it doubles per failed attempt.
	Base time.Duration
	// Cap bounds the delay growth.
	Cap time.Duration
	// MaxAttempts limits retries per drop; 0 means retry until closed.
	MaxAttempts int
}

// DefaultBackoffPolicy returns the schedule used when the zero policy is
// supplied.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base: 500 * time.Millisecond,
		Cap:  30 * time.Second,
	}
}

// Supervisor re-opens a room's session after an unexpected drop. The session
// itself is strictly terminal on disconnect; reliability is layered here,
// opted into per room. AuthRejected and explicit Close are never retried.
//
// A successful re-open receives a fresh history frame, which reseeds the
// message log through the normal dispatch path.
type Supervisor struct {
	room   *Room
	policy BackoffPolicy
	logger Logger
	cancel context.CancelFunc
	drops  chan StateEvent
}

// Supervise attaches a supervisor to an open room and starts watching for
// drops. Stop it before closing the room.
func Supervise(room *Room, policy BackoffPolicy) *Supervisor {
	if policy.Base <= 0 {
		policy = DefaultBackoffPolicy()
	}
	if policy.Cap < policy.Base {
		policy.Cap = policy.Base
	}
	s := &Supervisor{
		room:   room,
		policy: policy,
		logger: room.logger,
		drops:  make(chan StateEvent, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	room.setDropHook(func(ev StateEvent) {
		select {
		case s.drops <- ev:
		default:
		}
	})
	// A drop that landed before the hook was attached would otherwise go
	// unobserved; seed it from the room's current state.
	if room.State() == StateDisconnected {
		select {
		case s.drops <- StateEvent{OldState: StateConnected, NewState: StateDisconnected}:
		default:
		}
	}
	go s.run(ctx)
	return s
}

// Stop detaches the supervisor. The room stays in whatever state it is in.
func (s *Supervisor) Stop() {
	s.room.setDropHook(nil)
	s.cancel()
}

func (s *Supervisor) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.drops:
		}
		if !s.reopen(ctx) {
			return
		}
	}
}

// reopen retries with capped exponential backoff and jitter. It reports
// false when the supervisor should give up entirely.
func (s *Supervisor) reopen(ctx context.Context) bool {
	s.room.handleState(StateEvent{OldState: StateDisconnected, NewState: StateReconnecting})
	delay := s.policy.Base
	for attempt := 1; ; attempt++ {
		if s.policy.MaxAttempts > 0 && attempt > s.policy.MaxAttempts {
			s.logger.Warn("reconnect attempts exhausted", map[string]any{"room": s.room.ID, "attempts": s.policy.MaxAttempts})
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(jitter(delay)):
		}

		err := s.room.connect(ctx)
		if err == nil {
			s.logger.Info("reconnected", map[string]any{"room": s.room.ID, "attempt": attempt})
			return true
		}
		if IsAuthRejected(err) {
			s.logger.Warn("reconnect refused, giving up", map[string]any{"room": s.room.ID, "error": err.Error()})
			return false
		}
		s.logger.Warn("reconnect failed", map[string]any{"room": s.room.ID, "attempt": attempt, "error": err.Error()})

		delay *= 2
		if delay > s.policy.Cap {
			delay = s.policy.Cap
		}
	}
}

// jitter spreads a delay over [d/2, d) so rooms dropped together do not
// redial together.
func jitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := int64(d) / 2
	return time.Duration(half + rand.Int63n(half))
}
