package s3

import "sync"

// regionCache maps bucket -> region, shared by pointer across every clone
// of a Client. Populated by a GET /?location call against us-east-1;
// entries are evicted on NoSuchBucket and RetryHead errors (spec.md §3).
type regionCache struct {
	mu    sync.RWMutex
	items map[string]string
}

func newRegionCache() *regionCache {
	return &regionCache{items: make(map[string]string)}
}

func (c *regionCache) get(bucket string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.items[bucket]
	return r, ok
}

func (c *regionCache) set(bucket, region string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[bucket] = region
}

func (c *regionCache) evict(bucket string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, bucket)
}

const defaultRegion = "us-east-1"

// GetRegionCached implements spec.md §4.7's region discovery algorithm.
func (c *Client) GetRegionCached(bucket string, override string) (string, error) {
	if c.skipRegionLookup {
		return defaultRegion, nil
	}
	if override != "" {
		if c.base.Region != "" && c.base.Region != override {
			return "", &ErrorResponse{Kind: ErrRegionMismatch, Code: "RegionMismatch",
				Message: "requested region does not match the client's fixed region", Bucket: bucket}
		}
		return override, nil
	}
	if c.base.Region != "" {
		return c.base.Region, nil
	}
	if bucket == "" || c.creds == nil {
		return defaultRegion, nil
	}
	if region, ok := c.regionCache.get(bucket); ok {
		return region, nil
	}

	region, err := c.lookupBucketRegion(bucket)
	if err != nil {
		return "", err
	}
	c.regionCache.set(bucket, region)
	return region, nil
}
