package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Legacy(t *testing.T) {
	assert.Equal(t, "favorites_a@x.com", FavoritesKey("a@x.com").Legacy())
}

func TestKey_DistinctIdentitiesNeverCollide(t *testing.T) {
	// With plain concatenation these would be the same string under a
	// different namespace split; as structured keys they stay distinct.
	a := Key{Namespace: "favorites", Identity: "x_y"}
	b := Key{Namespace: "favorites_x", Identity: "y"}
	assert.NotEqual(t, a, b)

	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, a, "a"))
	require.NoError(t, m.Set(ctx, b, "b"))

	got, _, _ := m.Get(ctx, a)
	assert.Equal(t, "a", got)
}

func TestParseLegacyKey(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Key
		wantErr bool
	}{
		{name: "email identity", raw: "favorites_a@x.com", want: FavoritesKey("a@x.com")},
		{name: "identity with separator", raw: "favorites_first_last@x.com", want: FavoritesKey("first_last@x.com")},
		{name: "other namespace", raw: "settings_theme", wantErr: true},
		{name: "empty identity", raw: "favorites_", wantErr: true},
		{name: "no separator", raw: "favorites", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLegacyKey(NamespaceFavorites, tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLegacyKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemory_GetSetKeys(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, found, err := m.Get(ctx, FavoritesKey("a@x.com"))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Set(ctx, FavoritesKey("b@x.com"), "[]"))
	require.NoError(t, m.Set(ctx, FavoritesKey("a@x.com"), "[]"))
	require.NoError(t, m.Set(ctx, Key{Namespace: "other", Identity: "a@x.com"}, "x"))

	keys, err := m.Keys(ctx, NamespaceFavorites)
	require.NoError(t, err)
	assert.Equal(t, []Key{FavoritesKey("a@x.com"), FavoritesKey("b@x.com")}, keys)
}

func TestMemory_FailWrites(t *testing.T) {
	m := NewMemory()
	m.FailWrites = errors.New("quota exceeded")

	err := m.Set(context.Background(), FavoritesKey("a@x.com"), "[]")
	assert.EqualError(t, err, "quota exceeded")

	_, found, _ := m.Get(context.Background(), FavoritesKey("a@x.com"))
	assert.False(t, found)
}
