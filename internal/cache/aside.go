package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Aside implements the cache-aside pattern: on a hit the cached JSON is
// unmarshaled into dest, on a miss fill is invoked and its result cached.
// Cache failures are non-fatal; the fill function is the source of truth.
// Redis command errors are counted by the client's metrics hook.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, fill func() error) error {
	if client != nil {
		raw, err := client.Get(ctx, key).Bytes()
		if err == nil {
			if unmarshalErr := json.Unmarshal(raw, dest); unmarshalErr == nil {
				return nil
			}
			// Corrupt entry, drop it and fall through to fill
			client.Del(ctx, key)
		}
	}

	if err := fill(); err != nil {
		return err
	}

	if client != nil {
		if raw, err := json.Marshal(dest); err == nil {
			client.Set(ctx, key, raw, ttl)
		}
	}
	return nil
}
