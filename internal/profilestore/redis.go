package profilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 10

type RedisOptions struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// NewRedisClient prefers URL over Addr and pings the server before returning.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	ro := &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		ro = parsed
	}
	if ro.Addr == "" {
		return nil, errors.New("redis address is empty")
	}

	client := redis.NewClient(ro)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", ro.Addr, err)
	}
	return client, nil
}

type RedisKV struct {
	client redis.Cmdable
}

func NewRedisKV(client redis.Cmdable) *RedisKV {
	return &RedisKV{client: client}
}

func (kv *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := kv.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (kv *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := kv.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (kv *RedisKV) Delete(ctx context.Context, key string) error {
	if err := kv.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

type watcher interface {
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

// Update runs fn under WATCH/MULTI and retries when another client changed the
// key in between. Clients without WATCH support fall back to GET then SET.
func (kv *RedisKV) Update(ctx context.Context, key string, fn func(value string, ok bool) (string, error)) error {
	w, ok := kv.client.(watcher)
	if !ok {
		v, found, err := kv.Get(ctx, key)
		if err != nil {
			return err
		}
		next, err := fn(v, found)
		if err != nil {
			return err
		}
		return kv.Set(ctx, key, next)
	}

	txf := func(tx *redis.Tx) error {
		v, err := tx.Get(ctx, key).Result()
		found := true
		if errors.Is(err, redis.Nil) {
			found, err = false, nil
		}
		if err != nil {
			return fmt.Errorf("redis get %s: %w", key, err)
		}

		next, err := fn(v, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := w.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			if err != nil {
				return fmt.Errorf("redis update %s: %w", key, err)
			}
			return nil
		}
	}
	return fmt.Errorf("redis update %s: %w after %d attempts", key, redis.TxFailedErr, maxUpdateAttempts)
}
