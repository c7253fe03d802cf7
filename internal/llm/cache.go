package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedGenerator memoizes cluster labels. The same cluster text shows
// up repeatedly when users backtrack and re-enter a group, and labels
// are stable for a given excerpt set, so a TTL cache skips most model
// round-trips.
type CachedGenerator struct {
	Generator
	labels *gocache.Cache
}

// NewCachedGenerator wraps gen with a label cache using the given TTL.
func NewCachedGenerator(gen Generator, ttl time.Duration) *CachedGenerator {
	return &CachedGenerator{
		Generator: gen,
		labels:    gocache.New(ttl, 2*ttl),
	}
}

// LabelCluster returns a cached label when the cluster text was seen
// before, otherwise delegates and caches the result.
func (c *CachedGenerator) LabelCluster(ctx context.Context, text string) (string, error) {
	key := labelKey(text)
	if cached, found := c.labels.Get(key); found {
		return cached.(string), nil
	}

	label, err := c.Generator.LabelCluster(ctx, text)
	if err != nil {
		return "", err
	}

	c.labels.Set(key, label, gocache.DefaultExpiration)
	return label, nil
}

func labelKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
