// Package cache is the advisory tool-result cache. A miss or an error only
// costs a recomputation; callers never fail because of it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Cache stores opaque tool results by key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds a stable key from the tool name and its normalised arguments.
// Argument order and letter case do not change the key.
func Key(tool string, args map[string]string) string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		value := strings.Join(strings.Fields(strings.ToLower(args[name])), " ")
		if value == "" {
			continue
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "tool:" + tool + ":" + hex.EncodeToString(sum[:16])
}

// Nop never hits
type Nop struct{}

func (Nop) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (Nop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
