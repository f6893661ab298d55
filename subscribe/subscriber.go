package subscribe

import (
	"errors"
	"sync"

	"github.com/lightningnetwork/lnd/queue"
)

// ErrSubscriberStopped is the terminal code delivered to handlers when a
// subscriber is stopped without a more specific code, and the error returned
// for any relay attempted against a stopped subscriber.
var ErrSubscriberStopped = errors.New("subscriber stopped")

// defaultEventQueueSize is the initial capacity of a subscriber's internal
// event queue. The queue grows without bound, so relaying never blocks the
// caller.
const defaultEventQueueSize = 16

// Handler is a completion handler awaiting either a value of type M or a
// terminal error. Exactly one of the two is meaningful per invocation: on a
// delivery err is nil, on a terminal code the value is the zero value of M.
type Handler[M any] func(M, error)

// event is a single unit of delivery work: the set of handlers consumed by a
// relay, together with the value or terminal code they receive.
type event[M any] struct {
	handlers []Handler[M]
	msg      M
	err      error

	// last marks the terminal event, after which the delivery goroutine
	// exits.
	last bool
}

// Subscriber is a one-shot fan-out list of completion handlers for values of
// type M. Handlers are registered with Subscribe and consumed by the next
// Relay or Handle call; after Stop every pending handler receives the
// terminal code exactly once and later subscriptions are completed
// immediately.
//
// Delivery is decoupled from the relaying caller through an internal queue
// drained by a single goroutine, so relays never block and handlers for the
// same subscriber always run in relay order.
type Subscriber[M any] struct {
	name string

	mtx      sync.Mutex
	open     bool
	done     bool
	doneErr  error
	handlers []Handler[M]

	events *queue.ConcurrentQueue
	wg     sync.WaitGroup
}

// New creates a subscriber tagged with the given debug name. The subscriber
// is created closed; handlers registered before Start are completed
// immediately with ErrSubscriberStopped.
func New[M any](name string) *Subscriber[M] {
	s := &Subscriber[M]{
		name:   name,
		events: queue.NewConcurrentQueue(defaultEventQueueSize),
	}
	s.events.Start()

	s.wg.Add(1)
	go s.deliver()

	return s
}

// Name returns the debug name the subscriber was created with.
func (s *Subscriber[M]) Name() string {
	return s.name
}

// Start opens the subscriber for registration and delivery. Starting an
// already stopped subscriber has no effect.
func (s *Subscriber[M]) Start() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.done {
		return
	}

	s.open = true
}

// Subscribe registers a handler for the next relayed value. If the
// subscriber is closed the handler is completed immediately with the
// terminal code.
func (s *Subscriber[M]) Subscribe(handler Handler[M]) {
	s.mtx.Lock()
	if !s.open {
		err := s.doneErr
		if err == nil {
			err = ErrSubscriberStopped
		}
		s.mtx.Unlock()

		var zero M
		handler(zero, err)
		return
	}

	s.handlers = append(s.handlers, handler)
	s.mtx.Unlock()
}

// Relay delivers msg to every currently registered handler in subscription
// order and clears the list. Relaying against a closed subscriber returns
// ErrSubscriberStopped and delivers nothing.
func (s *Subscriber[M]) Relay(msg M) error {
	s.mtx.Lock()
	if !s.open {
		s.mtx.Unlock()
		return ErrSubscriberStopped
	}

	handlers := s.handlers
	s.handlers = nil

	// The event is enqueued under the mutex so that no delivery can slip
	// in behind the terminal event of a racing Stop.
	if len(handlers) > 0 {
		s.events.ChanIn() <- &event[M]{
			handlers: handlers,
			msg:      msg,
		}
	}
	s.mtx.Unlock()

	return nil
}

// Handle delivers msg to the head handler only, consuming just that
// subscription. Any remaining handlers stay registered, which gives the
// consumer at the head of the list back-pressure over the producer.
func (s *Subscriber[M]) Handle(msg M) error {
	s.mtx.Lock()
	if !s.open {
		s.mtx.Unlock()
		return ErrSubscriberStopped
	}

	if len(s.handlers) == 0 {
		s.mtx.Unlock()
		return nil
	}

	head := s.handlers[0]
	s.handlers = s.handlers[1:]

	s.events.ChanIn() <- &event[M]{
		handlers: []Handler[M]{head},
		msg:      msg,
	}
	s.mtx.Unlock()

	return nil
}

// Len returns the number of currently registered handlers.
func (s *Subscriber[M]) Len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return len(s.handlers)
}

// Stop closes the subscriber and delivers err as the terminal code to every
// registered handler exactly once. A nil err is normalized to
// ErrSubscriberStopped. Stop blocks until the terminal deliveries have run
// and must not be called from a handler. Subsequent Stop calls are no-ops.
func (s *Subscriber[M]) Stop(err error) {
	if err == nil {
		err = ErrSubscriberStopped
	}

	s.mtx.Lock()
	if s.done {
		s.mtx.Unlock()
		return
	}

	s.done = true
	s.open = false
	s.doneErr = err

	handlers := s.handlers
	s.handlers = nil

	s.events.ChanIn() <- &event[M]{
		handlers: handlers,
		err:      err,
		last:     true,
	}
	s.mtx.Unlock()

	s.wg.Wait()
	s.events.Stop()
}

// deliver drains the event queue in order, invoking each event's handlers.
//
// NOTE: This method MUST be run as a goroutine.
func (s *Subscriber[M]) deliver() {
	defer s.wg.Done()

	for v := range s.events.ChanOut() {
		e := v.(*event[M])
		for _, handler := range e.handlers {
			handler(e.msg, e.err)
		}

		if e.last {
			return
		}
	}
}
