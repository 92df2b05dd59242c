// Package storage provides the blob store used for raw inputs, cleaned
// tables, and run artifacts.
package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/YuminosukeSato/rentprice/pkg/errors"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BlobStore is a flat key/value object store.
type BlobStore interface {
	// Get returns the object's bytes or an error wrapping errors.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key and returns the object's URI.
	Put(ctx context.Context, key string, data []byte) (string, error)
	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Latest returns the most recently modified object under prefix whose key
// ends with suffix.
func Latest(ctx context.Context, store BlobStore, prefix, suffix string) (ObjectInfo, error) {
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return ObjectInfo{}, err
	}

	var matches []ObjectInfo
	for _, o := range objects {
		if strings.HasSuffix(o.Key, suffix) {
			matches = append(matches, o)
		}
	}
	if len(matches) == 0 {
		return ObjectInfo{}, errors.Wrapf(errors.ErrNotFound, "no %s objects under %q", suffix, prefix)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].LastModified.Equal(matches[j].LastModified) {
			return matches[i].Key > matches[j].Key
		}
		return matches[i].LastModified.After(matches[j].LastModified)
	})
	return matches[0], nil
}

// JoinKey joins key segments with "/" and drops empty segments.
func JoinKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

// Dir returns the key prefix of key, without the trailing "/".
func Dir(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[:i]
	}
	return ""
}
