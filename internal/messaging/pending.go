package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Pending is a response future. The first Resolve or Reject wins; later
// calls are ignored.
type Pending struct {
	once sync.Once
	done chan struct{}
	body json.RawMessage
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Resolve completes the request with v encoded as JSON. It reports whether
// this call was the one that completed it.
func (p *Pending) Resolve(v any) bool {
	body, err := json.Marshal(v)
	if err != nil {
		return p.Reject(fmt.Errorf("encode response: %w", err))
	}
	return p.complete(body, nil)
}

// Reject completes the request with an error.
func (p *Pending) Reject(err error) bool {
	body, _ := json.Marshal(ErrorResponse{Error: err.Error()})
	return p.complete(body, err)
}

func (p *Pending) complete(body json.RawMessage, err error) bool {
	first := false
	p.once.Do(func() {
		p.body = body
		p.err = err
		first = true
		close(p.done)
	})
	return first
}

// Done is closed once the request has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the response arrives or ctx ends, in which case it
// returns ErrChannelClosed.
func (p *Pending) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-p.done:
		return p.body, p.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrChannelClosed, ctx.Err())
	}
}
