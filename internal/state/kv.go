package state

import (
	"context"
	"encoding/json"
	"log/slog"
)

// KV is the local key-value persistence the state is saved to.
//
// Implemented by store.Store (SQLite) and testutil.MemoryKV.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Keys under which the state is persisted.
const (
	KeyTheme          = "theme"
	KeySound          = "sound"
	KeyView           = "view"
	KeyTasks          = "tasks"
	KeyCategories     = "categories"
	KeyCustomThemes   = "customThemes"
	KeyCategoryColors = "categoryColors"
	KeySync           = "sync"
)

// load decodes key, returning fallback when the value is missing,
// unreadable or corrupt.
func load[T any](ctx context.Context, kv KV, key string, fallback T) T {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		slog.Warn("state: read failed, using default", "key", key, "error", err)
		return fallback
	}
	if !ok || len(raw) == 0 {
		return fallback
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("state: corrupt value, using default", "key", key, "error", err)
		return fallback
	}
	return v
}

// save encodes v under key and reports success. Failures are logged; the
// in-memory state stays authoritative.
func save(ctx context.Context, kv KV, key string, v any) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("state: encode failed", "key", key, "error", err)
		return false
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		slog.Warn("state: write failed", "key", key, "error", err)
		return false
	}
	return true
}
