package profilestore

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type BackendOptions struct {
	Backend string
	Dir     string
	Redis   RedisOptions
}

// OpenKV builds the configured KV. The returned close func is never nil.
func OpenKV(ctx context.Context, opts BackendOptions) (KV, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendMemory:
		return NewMemoryKV(), noop, nil
	case "", BackendFile:
		kv, err := NewFileKV(opts.Dir)
		if err != nil {
			return nil, noop, err
		}
		return kv, noop, nil
	case BackendRedis:
		client, err := NewRedisClient(ctx, opts.Redis)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisKV(client), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
