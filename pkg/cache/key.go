package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "memocloud"

// CacheKey represents a unique identifier for a cached API response.
type CacheKey struct {
	// Endpoint is the API path (e.g., "/memoires/universites/ecole-des-travaux/stats/")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"page": "2"})
	QueryParams url.Values

	// Principal identifies the caller for authenticated responses ("" for anonymous)
	Principal string
}

// String generates a deterministic cache key string.
// Format: memocloud:endpoint:query1=val1:query2=val2:user=<principal>
//
// Example:
//
//	memocloud:memoires/universites/ecole-des-travaux/memoires:ordering=-created_at:page=2
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	if k.Principal != "" {
		parts = append(parts, "user="+k.Principal)
	}

	return strings.Join(parts, ":")
}

// Principal derives a stable, non-reversible cache principal from a bearer
// token. An empty token yields an empty principal.
func Principal(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
