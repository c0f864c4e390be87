// Package session bridges the asynchronous gap between showing a quality
// prompt and the user's later button press. Entries live under generated
// opaque keys, expire after a fixed TTL, and are consumed at most once.
package session

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/google/uuid"
	"github.com/ytget/ytgram/internal/model"
)

// DefaultTTL is how long a selection stays answerable.
const DefaultTTL = 10 * time.Minute

const cleanupInterval = time.Minute

// Cache stores pending selections keyed by generated identifiers.
type Cache struct {
	mu    sync.Mutex
	store *gocache.Cache
}

// New creates a cache with the given entry TTL. Zero means DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: gocache.New(ttl, cleanupInterval)}
}

// Put stores the entry and returns its generated key. Keys are random, so
// they cannot be guessed across users or collide within a TTL window.
func (c *Cache) Put(entry *model.SelectionEntry) string {
	key := uuid.NewString()
	c.store.SetDefault(key, entry)
	return key
}

// Take consumes the entry for key. It returns model.ErrSessionExpired when
// the key was never stored, already consumed, or expired. Callers treat all
// three as the session being gone.
func (c *Cache) Take(key string) (*model.SelectionEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.store.Get(key)
	if !ok {
		return nil, model.ErrSessionExpired
	}
	c.store.Delete(key)
	return v.(*model.SelectionEntry), nil
}

// Len reports the number of live entries, for the health surface.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
