package sig4

import "sync"

// cacheKey identifies a derived signing key by the three inputs that fully
// determine it alongside the (unhashed, unstored) secret: date, region, and
// service. Two requests signed on the same UTC day, against the same
// region/service, always share a signing key.
type cacheKey struct {
	date    string
	region  string
	service string
}

// KeyCache caches derived SigV4 signing keys per (date, region, service).
// It never stores or hashes the secret key itself: the cache is keyed
// purely on the triple above, so rotating credentials without changing
// date/region/service yields a stale cache hit and an auth failure at the
// server.
//
// The cache favors many concurrent readers: a lookup takes the read lock,
// and only a confirmed miss takes the write lock to install a freshly
// derived key. Two goroutines racing on the same miss will both derive the
// same deterministic bytes, so the redundant work is harmless.
type KeyCache struct {
	mu    sync.RWMutex
	items map[cacheKey][]byte

	// hits is exposed only so tests can assert cache behavior
	// deterministically; production code never reads it.
	hits int
}

// NewKeyCache returns an empty signing-key cache.
func NewKeyCache() *KeyCache {
	return &KeyCache{items: make(map[cacheKey][]byte)}
}

// Derive returns the SigV4 signing key for (secret, date, region, service),
// consulting and populating the cache along the way.
//
//	k1 = HMAC("AWS4"+secret, date)
//	k2 = HMAC(k1, region)
//	k3 = HMAC(k2, service)
//	signingKey = HMAC(k3, "aws4_request")
func (c *KeyCache) Derive(secret, date, region, service string) []byte {
	key := cacheKey{date: date, region: region, service: service}

	c.mu.RLock()
	if k, ok := c.items[key]; ok {
		c.mu.RUnlock()
		return k
	}
	c.mu.RUnlock()

	k1 := HMACSHA256([]byte("AWS4"+secret), []byte(date))
	k2 := HMACSHA256(k1, []byte(region))
	k3 := HMACSHA256(k2, []byte(service))
	signingKey := HMACSHA256(k3, []byte("aws4_request"))

	c.mu.Lock()
	if existing, ok := c.items[key]; ok {
		// Another goroutine won the race; the result is deterministic so
		// either value is correct, but prefer the one already installed.
		c.mu.Unlock()
		return existing
	}
	c.items[key] = signingKey
	c.mu.Unlock()
	return signingKey
}

// Hits returns the number of cache hits observed so far. Test-only.
func (c *KeyCache) Hits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}

// DeriveCounted is the test-instrumented variant of Derive that increments
// the hit counter on a cache hit, used to verify the caching invariant in
// §8 of the spec without leaking counting overhead into the hot path.
func (c *KeyCache) DeriveCounted(secret, date, region, service string) []byte {
	key := cacheKey{date: date, region: region, service: service}

	c.mu.Lock()
	if k, ok := c.items[key]; ok {
		c.hits++
		c.mu.Unlock()
		return k
	}
	c.mu.Unlock()

	return c.Derive(secret, date, region, service)
}
