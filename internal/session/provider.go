// Package session tracks the currently authenticated identity and notifies
// subscribers about every sign-in, sign-out and restore transition.
//
// A Provider is created explicitly and handed to whatever needs it; there is
// no package-level current session.
//
//	p := session.NewProvider()
//	unsubscribe := p.Subscribe(func(ev session.Event) { ... })
//	defer unsubscribe()
//	p.SignIn("a@x.com")
package session

import (
	"errors"
	"sync"
)

var ErrEmptyIdentity = errors.New("identity must not be empty")

// EventKind says which lifecycle operation caused a transition.
type EventKind string

const (
	EventSignIn  EventKind = "sign_in"
	EventSignOut EventKind = "sign_out"
	EventRestore EventKind = "restore"
)

// Event describes one transition. Active is false for deactivations, in which
// case Identity names the identity that was just deactivated.
type Event struct {
	Kind     EventKind
	Identity string
	Active   bool
}

// Source is the read side of a session as consumed by the favorites store.
type Source interface {
	Current() (string, bool)
	Subscribe(fn func(Event)) (unsubscribe func())
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Provider is an in-process session holder. Transitions are delivered
// synchronously: SignIn, SignOut and Restore return only after every
// subscriber has handled the resulting events, in subscription order.
type Provider struct {
	// transition serializes whole transitions including delivery, so events
	// are processed one at a time in arrival order.
	transition sync.Mutex

	mu          sync.RWMutex
	identity    string
	active      bool
	nextID      uint64
	subscribers []subscriber
}

func NewProvider() *Provider {
	return &Provider{}
}

// Current returns the active identity, if any.
func (p *Provider) Current() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.identity, p.active
}

// Subscribe registers fn for all future transitions.
func (p *Provider) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subscribers = append(p.subscribers, subscriber{id: id, fn: fn})
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { p.unsubscribe(id) })
	}
}

func (p *Provider) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subscribers {
		if s.id == id {
			p.subscribers = append(p.subscribers[:i:i], p.subscribers[i+1:]...)
			return
		}
	}
}

// SignIn makes identity the active session. Signing in as a different
// identity first deactivates the current one. Signing in again as the
// already-active identity emits nothing.
func (p *Provider) SignIn(identity string) error {
	return p.activate(EventSignIn, identity)
}

// Restore re-establishes a session that outlived a restart, e.g. from a
// session cookie. It behaves like SignIn.
func (p *Provider) Restore(identity string) error {
	return p.activate(EventRestore, identity)
}

// SignOut clears the active session. It is a no-op when nobody is signed in.
func (p *Provider) SignOut() {
	p.transition.Lock()
	defer p.transition.Unlock()

	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	previous := p.identity
	p.identity, p.active = "", false
	p.mu.Unlock()

	p.publish(Event{Kind: EventSignOut, Identity: previous, Active: false})
}

func (p *Provider) activate(kind EventKind, identity string) error {
	if identity == "" {
		return ErrEmptyIdentity
	}

	p.transition.Lock()
	defer p.transition.Unlock()

	p.mu.Lock()
	if p.active && p.identity == identity {
		p.mu.Unlock()
		return nil
	}
	previous, wasActive := p.identity, p.active
	p.mu.Unlock()

	if wasActive {
		p.mu.Lock()
		p.identity, p.active = "", false
		p.mu.Unlock()
		p.publish(Event{Kind: EventSignOut, Identity: previous, Active: false})
	}

	p.mu.Lock()
	p.identity, p.active = identity, true
	p.mu.Unlock()
	p.publish(Event{Kind: kind, Identity: identity, Active: true})
	return nil
}

func (p *Provider) publish(ev Event) {
	p.mu.RLock()
	subs := make([]subscriber, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

var _ Source = (*Provider)(nil)
