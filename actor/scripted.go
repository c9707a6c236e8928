package actor

import (
	"context"
	"sync"
	"time"

	"github.com/openpoker/cardroom"
	"github.com/openpoker/cardroom/engine"
)

// Scripted replays a fixed action sequence, one per request; when the script
// runs out it falls back to the default action. Built for deterministic
// tests.
type Scripted struct {
	mu      sync.Mutex
	name    string
	actions []engine.Action
	next    int

	events   []cardroom.Event
	requests []*cardroom.GameSnapshot
}

func NewScripted(name string, actions ...engine.Action) *Scripted {
	return &Scripted{
		name:    name,
		actions: actions,
	}
}

func (s *Scripted) Name() string {
	return s.name
}

func (s *Scripted) IsHuman() bool {
	return false
}

func (s *Scripted) Notify(ev cardroom.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *Scripted) RequestAction(ctx context.Context, snapshot *cardroom.GameSnapshot, valid engine.ValidActions, timeLimit time.Duration) (engine.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, snapshot)
	if s.next >= len(s.actions) {
		return cardroom.DefaultAction(valid), nil
	}

	act := s.actions[s.next]
	s.next++
	return act, nil
}

// Events returns a copy of every notification received so far.
func (s *Scripted) Events() []cardroom.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]cardroom.Event(nil), s.events...)
}

// Requests returns the snapshots received with each action request.
func (s *Scripted) Requests() []*cardroom.GameSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*cardroom.GameSnapshot(nil), s.requests...)
}
