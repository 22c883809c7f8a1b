package favorites

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/mrlokans/bookfinder/internal/entities"
	"github.com/mrlokans/bookfinder/internal/storage"
)

// LegacyDump is a browser localStorage dump: legacy key ("favorites_<email>")
// mapped to the stored JSON string.
type LegacyDump map[string]string

// ImportResult summarizes an Import run.
type ImportResult struct {
	Identities int      `json:"identities"`
	Added      int      `json:"added"`
	Skipped    []string `json:"skipped,omitempty"`
}

// Export returns every favorites record, values copied byte for byte.
func Export(ctx context.Context, durable storage.Durable) (LegacyDump, error) {
	keys, err := durable.Keys(ctx, storage.NamespaceFavorites)
	if err != nil {
		return nil, fmt.Errorf("list favorites records: %w", err)
	}

	dump := make(LegacyDump, len(keys))
	for _, key := range keys {
		raw, found, err := durable.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		if found {
			dump[key.Legacy()] = raw
		}
	}
	return dump, nil
}

// ExportIdentity returns a dump holding only identity's record. A missing
// record exports as an empty list.
func ExportIdentity(ctx context.Context, durable storage.Durable, identity string) (LegacyDump, error) {
	key := storage.FavoritesKey(identity)
	raw, found, err := durable.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !found {
		raw = "[]"
	}
	return LegacyDump{key.Legacy(): raw}, nil
}

// Import merges a dump into durable storage. Books already present for an
// identity keep their position; new ones are appended in dump order. Keys
// outside the favorites namespace, values that do not parse, and identities
// rejected by allow are skipped. A nil allow accepts every identity. A nil
// locks gets a private registry, which is only safe when nothing else writes
// concurrently.
func Import(ctx context.Context, durable storage.Durable, locks *Locks, dump LegacyDump, allow func(identity string) bool) (ImportResult, error) {
	var result ImportResult
	if locks == nil {
		locks = NewLocks()
	}

	rawKeys := make([]string, 0, len(dump))
	for k := range dump {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)

	for _, rawKey := range rawKeys {
		key, err := storage.ParseLegacyKey(storage.NamespaceFavorites, rawKey)
		if err != nil || (allow != nil && !allow(key.Identity)) {
			result.Skipped = append(result.Skipped, rawKey)
			continue
		}

		incoming, err := DecodeCollection(dump[rawKey])
		if err != nil {
			result.Skipped = append(result.Skipped, rawKey)
			continue
		}

		added, err := mergeInto(ctx, durable, locks, key, incoming)
		if err != nil {
			return result, err
		}
		result.Identities++
		result.Added += added
	}
	return result, nil
}

func mergeInto(ctx context.Context, durable storage.Durable, locks *Locks, key storage.Key, incoming []entities.BookRecord) (int, error) {
	unlock := locks.Lock(key.Identity)
	defer unlock()

	existing := []entities.BookRecord{}
	raw, found, err := durable.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	if found {
		books, err := DecodeCollection(raw)
		if err != nil {
			log.Printf("[FAVORITES] WARNING: replacing unreadable favorites for %s on import: %v", key.Identity, err)
		} else {
			existing = books
		}
	}

	merged := existing
	added := 0
	for _, b := range incoming {
		if indexOf(merged, b.ID) >= 0 {
			continue
		}
		merged = append(merged, b)
		added++
	}

	raw, err = EncodeCollection(merged)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDurableWrite, err)
	}
	if err := durable.Set(ctx, key, raw); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDurableWrite, err)
	}
	return added, nil
}
