package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// HandlerFunc serves one request type. The returned value is the response
// body; a returned error becomes {error: message}.
type HandlerFunc func(ctx context.Context, data json.RawMessage) (any, error)

// Observer records request outcomes.
type Observer interface {
	ObserveMessage(msgType, outcome string)
}

type route struct {
	fn    HandlerFunc
	async bool
}

// Router dispatches requests to registered handlers.
type Router struct {
	mu       sync.RWMutex
	routes   map[Type]route
	logger   *slog.Logger
	observer Observer
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{routes: make(map[Type]route), logger: logger}
}

// SetObserver attaches an outcome observer.
func (r *Router) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// Handle registers a handler whose response is produced before Dispatch returns.
func (r *Router) Handle(t Type, fn HandlerFunc) {
	r.register(t, route{fn: fn})
}

// HandleAsync registers a handler that responds later; Dispatch returns an
// unresolved Pending immediately.
func (r *Router) HandleAsync(t Type, fn HandlerFunc) {
	r.register(t, route{fn: fn, async: true})
}

func (r *Router) register(t Type, rt route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.routes[t]; dup {
		panic(fmt.Sprintf("messaging: duplicate handler for %s", t))
	}
	r.routes[t] = rt
}

// Types returns the registered request types.
func (r *Router) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, 0, len(r.routes))
	for t := range r.routes {
		out = append(out, t)
	}
	return out
}

// Dispatch routes req. An unregistered type resolves at once with
// ErrUnrecognizedRequest.
func (r *Router) Dispatch(ctx context.Context, req Request) *Pending {
	p := newPending()

	r.mu.RLock()
	rt, ok := r.routes[req.Type]
	obs := r.observer
	r.mu.RUnlock()

	r.logger.Debug("message received", "type", req.Type, "id", req.ID)

	if !ok {
		r.logger.Warn("unrecognized message type", "type", req.Type)
		p.Reject(ErrUnrecognizedRequest)
		observe(obs, req.Type, "unrecognized")
		return p
	}

	run := func() {
		v, err := rt.fn(ctx, req.Data)
		if err != nil {
			r.logger.Error("message failed", "type", req.Type, "error", err)
			p.Resolve(ErrorResponse{Error: err.Error()})
			observe(obs, req.Type, "error")
			return
		}
		if res, isResult := v.(Result); isResult && !res.Success {
			observe(obs, req.Type, "error")
		} else {
			observe(obs, req.Type, "ok")
		}
		p.Resolve(v)
	}

	if rt.async {
		go run()
	} else {
		run()
	}
	return p
}

func observe(o Observer, t Type, outcome string) {
	if o != nil {
		o.ObserveMessage(string(t), outcome)
	}
}
