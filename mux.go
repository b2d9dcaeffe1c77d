package uniqm

import (
	"context"
	"sync"

	rtm "github.com/UniQw/uniqm-go/internal/runtime"
)

// HandlerFunc processes one job payload. The returned value is encoded and
// stored as the job result; a non-nil error marks the job Failed.
type HandlerFunc func(ctx context.Context, payload []byte) (any, error)

// Middleware is a function that wraps a HandlerFunc to provide cross-cutting concerns.
type Middleware func(HandlerFunc) HandlerFunc

// Mux routes jobs to their callbacks by action name.
type Mux struct {
	mu          sync.RWMutex
	handlers    map[string]HandlerFunc
	encoder     Encoder
	middlewares []Middleware
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{
		handlers: make(map[string]HandlerFunc),
		encoder:  &JSONEncoder{},
	}
}

// Handle registers the callback for action, replacing any previous one.
func (m *Mux) Handle(action string, fn HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[action] = fn
}

// Use adds middleware(s) to the mux. Middlewares are executed in the order they are added.
func (m *Mux) Use(mw ...Middleware) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.middlewares = append(m.middlewares, mw...)
}

// Actions returns the registered action names.
func (m *Mux) Actions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.handlers))
	for a := range m.handlers {
		out = append(out, a)
	}
	return out
}

func (m *Mux) lookup(action string) (HandlerFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[action]
	if !ok {
		return nil, false
	}
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		h = m.middlewares[i](h)
	}
	return h, true
}

// execute adapts the mux to the runtime executor.
func (m *Mux) execute(ctx context.Context, action string, payload []byte) ([]byte, error) {
	h, ok := m.lookup(action)
	if !ok {
		return nil, rtm.ErrNoHandler
	}
	v, err := h(ctx, payload)
	if err != nil {
		return nil, err
	}
	return m.encoder.Encode(v)
}
