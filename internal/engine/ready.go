package engine

import "sync"

// Ready is a one-shot "ready to emit" signal.
//
// The Applier fires it once it has applied the whole stream. Fire may be
// called any number of times; only the first has an effect.
type Ready struct {
	once sync.Once
	ch   chan struct{}
}

// NewReady creates an unfired signal.
func NewReady() *Ready {
	return &Ready{ch: make(chan struct{})}
}

// Fire marks the signal as fired.
func (r *Ready) Fire() {
	r.once.Do(func() { close(r.ch) })
}

// Done returns a channel that is closed once the signal fires.
func (r *Ready) Done() <-chan struct{} {
	return r.ch
}

// Fired reports whether the signal has fired.
func (r *Ready) Fired() bool {
	select {
	case <-r.ch:
		return true
	default:
		return false
	}
}
