// Package cache implements the Cache Store (spec.md §6.4, §4.5): a
// pluggable get/set key-value store fronting every analyzer, selected
// by deployment profile the way the teacher's internal/storage package
// picks a backend by profile (Lite=embedded, Standard=external).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Entry is the serialized form of one cached AnalysisResult (spec.md
// §4.5 "Serialization"). The extension itself is never serialized —
// callers reattach the current Extension on read.
type Entry struct {
	AnalyzerName    string         `json:"analyzerName"`
	ExtensionKey    string         `json:"extensionKey"`
	Metrics         map[string]any `json:"metrics"`
	RiskScore       float64        `json:"riskScore"`
	Recommendations []string       `json:"recommendations"`
	Successful      bool           `json:"successful"`
	Error           string         `json:"error,omitempty"`
	CachedAt        time.Time      `json:"cachedAt"`
	TTLSeconds      int            `json:"cacheTtl"`
}

// Valid reports whether e is still usable per its own ttl, and
// (optionally) against dirMTime — an entry older than the extension
// directory's modification time is invalid even within ttl (spec.md
// §4.5 "Cached entry validity").
func (e Entry) Valid(now time.Time, dirMTime *time.Time) bool {
	if now.Sub(e.CachedAt) > time.Duration(e.TTLSeconds)*time.Second {
		return false
	}
	if dirMTime != nil && e.CachedAt.Before(*dirMTime) {
		return false
	}
	return true
}

// Store is the uniform contract every backend implements (spec.md
// §6.4): get/set by opaque key, generateKey is a package-level helper
// rather than a method since it needs no backend state.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Close() error
}

// GenerateKey builds the opaque cache key spec.md §6.4/§4.5 describes:
// "analysis_<analyzerName>_<sha256hex>", where the hash covers a
// canonical JSON encoding of the supplied key components. Map-valued
// components are re-marshaled with sorted keys so the same logical
// input always yields the same hash regardless of map iteration order.
func GenerateKey(analyzerName string, components map[string]any) string {
	keys := make([]string, 0, len(components))
	for k := range components {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		ordered = append(ordered, k, components[k])
	}

	canonical, _ := json.Marshal(ordered)
	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("analysis_%s_%s", analyzerName, hex.EncodeToString(sum[:]))
}
