// Package timer keeps a table of cancellable delayed actions keyed by slot.
//
// An Engine is owned by a single goroutine. Expired timers do not run any
// game logic themselves; they hand a Firing to the fire callback, which is
// expected to post it back to the owner. The owner then calls Accept, which
// rejects firings that were cancelled or replaced after they were already on
// their way.
package timer

import "time"

type Stopper interface {
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }

// Real schedules on the runtime's timers.
var Real Clock = realClock{}

type Firing[K comparable, P any] struct {
	Key     K
	Payload P
	Gen     uint64
}

type entry struct {
	gen  uint64
	stop Stopper
}

type Engine[K comparable, P any] struct {
	clock Clock
	fire  func(Firing[K, P])
	gen   uint64
	live  map[K]entry
}

func New[K comparable, P any](clock Clock, fire func(Firing[K, P])) *Engine[K, P] {
	if clock == nil {
		clock = Real
	}
	return &Engine[K, P]{clock: clock, fire: fire, live: make(map[K]entry)}
}

// Arm schedules payload for key after d, replacing any timer already armed
// for key.
func (e *Engine[K, P]) Arm(key K, d time.Duration, payload P) {
	e.Cancel(key)
	e.gen++
	f := Firing[K, P]{Key: key, Payload: payload, Gen: e.gen}
	e.live[key] = entry{gen: f.Gen, stop: e.clock.AfterFunc(d, func() { e.fire(f) })}
}

func (e *Engine[K, P]) Cancel(key K) {
	if en, ok := e.live[key]; ok {
		en.stop.Stop()
		delete(e.live, key)
	}
}

func (e *Engine[K, P]) CancelAll() {
	for key, en := range e.live {
		en.stop.Stop()
		delete(e.live, key)
	}
}

// Accept reports whether f is still the armed timer for its key and, if so,
// retires it.
func (e *Engine[K, P]) Accept(f Firing[K, P]) bool {
	en, ok := e.live[f.Key]
	if !ok || en.gen != f.Gen {
		return false
	}
	delete(e.live, f.Key)
	return true
}

// Armed returns the number of live timers.
func (e *Engine[K, P]) Armed() int { return len(e.live) }
