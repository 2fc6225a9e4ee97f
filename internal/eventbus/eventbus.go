// Package eventbus implements the typed pub/sub backbone described in
// spec.md §4.1: a bounded queue, a single sequential dispatcher, and
// per-handler isolation so one misbehaving subscriber cannot starve another.
package eventbus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultQueueSize and DefaultPublishTimeout match spec.md §4.1's defaults.
const (
	DefaultQueueSize     = 1000
	DefaultPublishTimeout = time.Second
)

// Handler processes one event. It must not panic across the dispatcher
// boundary in a way that takes down the process — Bus recovers panics per
// handler invocation and logs them, matching "an exception in one handler is
// caught, logged, and does not prevent subsequent handlers from running."
type Handler func(ctx context.Context, event any)

type subscription struct {
	eventType reflect.Type
	handler   Handler
}

// Bus is the event dispatcher. Zero value is not usable; construct with New.
type Bus struct {
	log       zerolog.Logger
	queueSize int
	timeout   time.Duration

	mu   sync.RWMutex
	subs map[reflect.Type][]Handler

	queue  chan any
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// Option customizes Bus construction.
type Option func(*Bus)

// WithQueueSize overrides the default bounded-queue capacity.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithPublishTimeout overrides how long Publish waits for queue space before
// dropping the event.
func WithPublishTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// New constructs a Bus. Call Start before publishing.
func New(log zerolog.Logger, opts ...Option) *Bus {
	b := &Bus{
		log:       log.With().Str("component", "eventbus").Logger(),
		queueSize: DefaultQueueSize,
		timeout:   DefaultPublishTimeout,
		subs:      make(map[reflect.Type][]Handler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for events whose dynamic type is T. Handlers for a given event type run sequentially, in the order
// they were subscribed.
func Subscribe[T any](b *Bus, handler func(ctx context.Context, event T)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], func(ctx context.Context, event any) {
		handler(ctx, event.(T))
	})
}

// Start launches the single dispatcher goroutine that drains the queue.
func (b *Bus) Start() {
	b.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		b.queue = make(chan any, b.queueSize)
		b.done = make(chan struct{})
		go b.dispatchLoop(ctx)
	})
}

// Stop cancels the dispatcher. In-flight handler invocations are allowed to
// complete; Stop blocks until the dispatcher goroutine has exited.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		if b.done != nil {
			<-b.done
		}
	})
}

// Publish enqueues event for delivery. If the queue is full, Publish waits up
// to the configured timeout (default ~1s) for space; on timeout the event is
// dropped and an error is logged. Publish never blocks the caller forever and
// never panics.
func (b *Bus) Publish(event any) {
	if b.queue == nil {
		b.log.Error().Str("event_type", typeName(event)).Msg("publish before start: event dropped")
		return
	}
	select {
	case b.queue <- event:
	case <-time.After(b.timeout):
		b.log.Error().Str("event_type", typeName(event)).Msg("event queue overflow: event dropped")
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.queue:
			b.dispatch(ctx, event)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, event any) {
	t := reflect.TypeOf(event)
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[t]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invokeSafely(ctx, h, event)
	}
}

func (b *Bus) invokeSafely(ctx context.Context, h Handler, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("event_type", typeName(event)).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	h(ctx, event)
}

func typeName(event any) string {
	if event == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", event)
}
