// Package redisstore is a Redis-backed component store.
//
// Every record is a JSON string under "<prefix>component:<id>"; the set
// "<prefix>components" indexes all ids so List does not need SCAN.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chazu/cassette/pkg/component"
	cerrors "github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/store"
)

// DefaultPrefix namespaces all keys.
const DefaultPrefix = "cassette:"

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store implements store.Store on Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisstore: connect %s: %w", cfg.Addr, err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) key(id string) string { return s.prefix + "component:" + id }
func (s *Store) index() string        { return s.prefix + "components" }

func (s *Store) Put(ctx context.Context, rec component.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redisstore: marshal %s: %w", rec.ID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(rec.ID), data, 0)
	pipe.SAdd(ctx, s.index(), rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: put %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (component.Record, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return component.Record{}, store.NotFound(id)
	}
	if err != nil {
		return component.Record{}, fmt.Errorf("redisstore: get %s: %w", id, err)
	}
	var rec component.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return component.Record{}, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "redisstore: parse %s", id)
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]component.Record, error) {
	ids, err := s.client.SMembers(ctx, s.index()).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list: %w", err)
	}

	var out []component.Record
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Deleted between SMEMBERS and MGET.
			continue
		}
		var rec component.Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "redisstore: parse %s", ids[i])
		}
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	store.SortRecords(out)
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.index(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisstore: delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ store.Store = (*Store)(nil)
