package signal

import "context"

// Listener receives signals. Handles are compared by identity, so a listener
// must be a pointer or another comparable value.
type Listener interface {
	SignalEvent(ctx context.Context, topic string, payload interface{}) error
}

// HandlerFunc is a signal handling function
type HandlerFunc func(ctx context.Context, topic string, payload interface{}) error

// FuncListener adapts a HandlerFunc to Listener
type FuncListener struct {
	Name    string
	handler HandlerFunc
}

// SignalEvent calls the handler
func (l *FuncListener) SignalEvent(ctx context.Context, topic string, payload interface{}) error {
	return l.handler(ctx, topic, payload)
}

// NewListener wraps fn into a listener handle
func NewListener(name string, fn HandlerFunc) *FuncListener {
	return &FuncListener{Name: name, handler: fn}
}
