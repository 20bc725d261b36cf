// Package auth tracks whether the operator session is authenticated.
package auth

import "sync"

type State struct {
	Authenticated bool `json:"authenticated"`
	Loading       bool `json:"loading"`
}

// Ready reports whether authenticated work may start.
func (s State) Ready() bool {
	return s.Authenticated && !s.Loading
}

// Signal broadcasts authentication state changes. Every subscriber sees
// every transition in order; Set never blocks on a slow reader.
type Signal struct {
	mu     sync.Mutex
	state  State
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	ch   chan State
	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	pending []State
}

func NewSignal() *Signal {
	return &Signal{
		state: State{Loading: true},
		subs:  make(map[int]*subscriber),
	}
}

func (s *Signal) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Signal) Set(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == s.state {
		return
	}
	s.state = state
	for _, sub := range s.subs {
		sub.push(state)
	}
}

// Subscribe returns a channel that first carries the current state and then
// every change. The returned func unsubscribes; the channel is closed soon
// after.
func (s *Signal) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	sub := &subscriber{
		ch:   make(chan State),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	sub.push(s.state)
	s.subs[id] = sub
	go sub.pump()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(sub.done)
		})
	}
}

func (sub *subscriber) push(state State) {
	sub.mu.Lock()
	sub.pending = append(sub.pending, state)
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscriber) next() (State, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if len(sub.pending) == 0 {
		return State{}, false
	}
	state := sub.pending[0]
	sub.pending = sub.pending[1:]
	return state, true
}

// pump forwards queued states to the reader until unsubscribed.
func (sub *subscriber) pump() {
	defer close(sub.ch)

	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}

		for {
			state, ok := sub.next()
			if !ok {
				break
			}
			select {
			case sub.ch <- state:
			case <-sub.done:
				return
			}
		}
	}
}
