package storage

import (
	"context"
	"errors"
	"strings"
)

// NamespaceFavorites is the namespace holding each identity's favorites list.
const NamespaceFavorites = "favorites"

// legacySeparator joins namespace and identity in the browser-era key format.
const legacySeparator = "_"

var ErrInvalidLegacyKey = errors.New("invalid legacy storage key")

// Key addresses one slot of durable storage. Namespace and identity are kept
// apart so identities containing the separator can never collide.
type Key struct {
	Namespace string
	Identity  string
}

// FavoritesKey returns the favorites slot for an identity.
func FavoritesKey(identity string) Key {
	return Key{Namespace: NamespaceFavorites, Identity: identity}
}

// Legacy renders the key the way the browser client named its localStorage
// entries, e.g. "favorites_a@x.com".
func (k Key) Legacy() string {
	return k.Namespace + legacySeparator + k.Identity
}

func (k Key) String() string {
	return k.Legacy()
}

// ParseLegacyKey converts a browser localStorage key back into a Key. Only
// keys in the given namespace are accepted; everything after the first
// separator is the identity, so identities may themselves contain "_".
func ParseLegacyKey(namespace, raw string) (Key, error) {
	prefix := namespace + legacySeparator
	if !strings.HasPrefix(raw, prefix) || len(raw) == len(prefix) {
		return Key{}, ErrInvalidLegacyKey
	}
	return Key{Namespace: namespace, Identity: raw[len(prefix):]}, nil
}

// Durable defines synchronous, non-expiring key-value storage.
type Durable interface {
	// Get returns the stored value and whether the slot exists
	Get(ctx context.Context, key Key) (string, bool, error)

	// Set replaces the whole value of a slot
	Set(ctx context.Context, key Key, value string) error

	// Keys lists all populated slots in a namespace
	Keys(ctx context.Context, namespace string) ([]Key, error)
}
