package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookfinder/internal/auth"
	"github.com/mrlokans/bookfinder/internal/favorites"
	"github.com/mrlokans/bookfinder/internal/metrics"
	"github.com/mrlokans/bookfinder/internal/session"
	"github.com/mrlokans/bookfinder/internal/storage"
)

// favoritesScope opens a favorites store for the caller of one request. The
// store follows a request-local session that is restored from the
// authenticated identity, and all stores share one lock registry.
type favoritesScope struct {
	durable storage.Durable
	locks   *favorites.Locks
	metrics *metrics.Metrics
}

func newFavoritesScope(durable storage.Durable, locks *favorites.Locks, m *metrics.Metrics) *favoritesScope {
	if locks == nil {
		locks = favorites.NewLocks()
	}
	return &favoritesScope{durable: durable, locks: locks, metrics: m}
}

// open returns the caller's loaded store and a release func. It writes a 401
// and returns ok=false when the request carries no identity.
func (fs *favoritesScope) open(c *gin.Context) (store *favorites.Store, release func(), ok bool) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		respondUnauthorized(c)
		return nil, nil, false
	}

	provider := session.NewProvider()
	store = favorites.NewStore(fs.durable, favorites.WithLocks(fs.locks), favorites.WithMetrics(fs.metrics))
	unbind := favorites.Bind(c.Request.Context(), provider, store)

	if err := provider.Restore(identity); err != nil {
		unbind()
		respondUnauthorized(c)
		return nil, nil, false
	}

	return store, func() {
		provider.SignOut()
		unbind()
	}, true
}
