package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateConnected SessionState = iota // datagrams seen, no HELLO yet
	StateJoined                        // bound to a player entity
	StateLeaving
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateJoined:
		return "Joined"
	case StateLeaving:
		return "Leaving"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for packet handlers. S is whatever
// the caller uses to identify the sender.
type HandlerFunc[S any] func(sess S, r *Reader) error

type handlerEntry[S any] struct {
	fn            HandlerFunc[S]
	allowedStates map[SessionState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry[S any] struct {
	handlers map[byte]*handlerEntry[S]
	charset  Charset
	log      *zap.Logger
}

func NewRegistry[S any](charset Charset, log *zap.Logger) *Registry[S] {
	return &Registry[S]{
		handlers: make(map[byte]*handlerEntry[S]),
		charset:  charset,
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given session states.
func (reg *Registry[S]) Register(opcode byte, states []SessionState, fn HandlerFunc[S]) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry[S]{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the opcode in data[0], validates the session
// state, and calls the handler. Unknown opcodes are ignored.
func (reg *Registry[S]) Dispatch(sess S, state SessionState, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty packet")
	}
	opcode := data[0]
	reg.log.Debug("收到封包",
		zap.Uint8("opcode", opcode),
		zap.Int("size", len(data)),
		zap.String("state", state.String()),
	)

	entry, ok := reg.handlers[opcode]
	if !ok {
		reg.log.Debug("未知操作碼", zap.Uint8("opcode", opcode), zap.String("state", state.String()))
		return nil // silently ignore unknown opcodes
	}

	if !entry.allowedStates[state] {
		return fmt.Errorf("opcode %d not allowed in state %s", opcode, state)
	}

	r := NewReaderCharset(data, reg.charset)
	return reg.safeCall(entry.fn, sess, r, opcode)
}

// safeCall executes a handler with panic recovery to prevent a single
// bad packet from crashing the entire game loop.
func (reg *Registry[S]) safeCall(fn HandlerFunc[S], sess S, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.Uint8("opcode", opcode),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %d: %v", opcode, rec)
		}
	}()
	if err := fn(sess, r); err != nil {
		return fmt.Errorf("opcode %d: %w", opcode, err)
	}
	return nil
}
