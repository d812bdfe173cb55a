package eventchat

import "encoding/json"

// Dispatcher routes inbound frames to registered handlers by discriminant.
// An unrecognized discriminant is logged and ignored, never fatal.
type Dispatcher struct {
	logger    Logger
	onHistory func([]Message)
	onMessage func(Message)
	onJoin    func(Participant)
	onLeave   func(string)
	onTyping  func(Participant)
	onError   func(error)
}

func (d *Dispatcher) SetLogger(l Logger)               { d.logger = l }
func (d *Dispatcher) SetOnHistory(fn func([]Message))  { d.onHistory = fn }
func (d *Dispatcher) SetOnMessage(fn func(Message))    { d.onMessage = fn }
func (d *Dispatcher) SetOnJoin(fn func(Participant))   { d.onJoin = fn }
func (d *Dispatcher) SetOnLeave(fn func(string))       { d.onLeave = fn }
func (d *Dispatcher) SetOnTyping(fn func(Participant)) { d.onTyping = fn }
func (d *Dispatcher) SetOnError(fn func(error))        { d.onError = fn }

func (d *Dispatcher) Dispatch(f ServerFrame) {
	switch f.Type {
	case frameChatHistory:
		if d.onHistory == nil {
			return
		}
		var p HistoryPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			d.dropMalformed(f.Type, err)
			return
		}
		d.onHistory(p.Messages)
	case frameChatMessage:
		if d.onMessage == nil {
			return
		}
		var m Message
		if err := json.Unmarshal(f.Data, &m); err != nil {
			d.dropMalformed(f.Type, err)
			return
		}
		d.onMessage(m)
	case frameUserJoin:
		if d.onJoin == nil {
			return
		}
		var p Participant
		if err := json.Unmarshal(f.Data, &p); err != nil {
			d.dropMalformed(f.Type, err)
			return
		}
		d.onJoin(p)
	case frameUserLeave:
		if d.onLeave == nil {
			return
		}
		var p LeavePayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			d.dropMalformed(f.Type, err)
			return
		}
		d.onLeave(p.ID)
	case frameUserTyping:
		if d.onTyping == nil {
			return
		}
		var p Participant
		if err := json.Unmarshal(f.Data, &p); err != nil {
			d.dropMalformed(f.Type, err)
			return
		}
		d.onTyping(p)
	default:
		if d.logger != nil {
			d.logger.Debug("unrecognized frame dropped", map[string]any{"type": f.Type})
		}
	}
}

func (d *Dispatcher) dropMalformed(frameType string, err error) {
	if d.logger != nil {
		d.logger.Warn("malformed frame dropped", map[string]any{"type": frameType, "error": err.Error()})
	}
	if d.onError != nil {
		d.onError(WrapError(ErrorMalformedFrame, "failed to unmarshal "+frameType+" payload", err))
	}
}
