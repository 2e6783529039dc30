// Package cache stores generated narratives so repeated analyses of the same
// ledger do not call the LLM provider again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from its parts; parts are joined unambiguously
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s;", len(p), p)
	}
	return "tdscan:" + namespace + ":v1:" + hex.EncodeToString(h.Sum(nil))
}

// GetJSON decodes a cached value into v. Undecodable entries count as misses.
func GetJSON(c Cache, key string, v interface{}) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it
func SetJSON(c Cache, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(key, data, ttl)
}

// fileName maps a key to a safe file name
func fileName(key string) string {
	return strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key) + ".cache"
}
