package subscribe

import "sync"

// StopSignal is an ordered list of completion handlers attached to a
// stoppable object. The stop event fires every handler with the stop code
// exactly once, after which the list is frozen; handlers subscribed after
// the signal has fired are invoked immediately with the recorded code.
//
// The zero value is ready for use.
type StopSignal struct {
	mtx      sync.Mutex
	fired    bool
	err      error
	handlers []func(error)
}

// NewStopSignal allocates a StopSignal.
func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// Subscribe appends a handler to be invoked when the signal fires. If the
// signal has already fired the handler is invoked immediately with the
// recorded stop code.
func (s *StopSignal) Subscribe(handler func(error)) {
	s.mtx.Lock()
	if s.fired {
		err := s.err
		s.mtx.Unlock()

		handler(err)
		return
	}

	s.handlers = append(s.handlers, handler)
	s.mtx.Unlock()
}

// Signal fires every subscribed handler with the given stop code, in
// subscription order. Only the first call has any effect.
func (s *StopSignal) Signal(err error) {
	s.mtx.Lock()
	if s.fired {
		s.mtx.Unlock()
		return
	}

	s.fired = true
	s.err = err
	handlers := s.handlers
	s.handlers = nil
	s.mtx.Unlock()

	for _, handler := range handlers {
		handler(err)
	}
}

// Signaled returns whether the stop event has fired.
func (s *StopSignal) Signaled() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.fired
}
