package favorites

import (
	"context"

	"github.com/mrlokans/bookfinder/internal/session"
)

// Bind drives store from src: every activation loads the new identity before
// the transition returns, every deactivation clears the store immediately.
// If src already has an identity, it is loaded before Bind returns.
//
// The returned func unsubscribes and deactivates the store.
func Bind(ctx context.Context, src session.Source, store *Store) (unbind func()) {
	unsubscribe := src.Subscribe(func(ev session.Event) {
		if ev.Active {
			store.Activate(ctx, ev.Identity)
			return
		}
		store.Deactivate()
	})

	if identity, ok := src.Current(); ok {
		store.Activate(ctx, identity)
	}

	return func() {
		unsubscribe()
		store.Deactivate()
	}
}
