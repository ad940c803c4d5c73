package viewer

import (
	"sync"

	"bidvault/internal/domain"
)

// KeyCache maps grantor ids to opened symmetric keys. It lives only in
// memory and caches successes only.
type KeyCache struct {
	mu   sync.RWMutex
	keys map[domain.IdentityID]domain.SymmetricKey
}

// NewKeyCache returns an empty cache.
func NewKeyCache() *KeyCache {
	return &KeyCache{keys: map[domain.IdentityID]domain.SymmetricKey{}}
}

func (c *KeyCache) Get(grantor domain.IdentityID) (domain.SymmetricKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.keys[grantor]
	return k, ok
}

func (c *KeyCache) Put(grantor domain.IdentityID, key domain.SymmetricKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[grantor] = key
}

func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Clear wipes and drops every cached key.
func (c *KeyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.keys {
		c.keys[id] = domain.SymmetricKey{}
		delete(c.keys, id)
	}
}
