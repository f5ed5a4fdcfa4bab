// Package redis provides a Redis-backed override store, letting several processes editing
// the same model share the property values set on component nodes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/keel/pkg/adapters/memory"
	"github.com/aretw0/keel/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.OverrideStore using Redis. Each node's overrides live in one hash
// whose fields are property names and whose values are JSON; a sorted set indexes the nodes.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration of a node's overrides, refreshed on every Set.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithScene namespaces keys by a scene identifier below the current prefix.
func WithScene(id string) Option {
	return func(s *Store) {
		s.prefix = s.prefix + id + ":"
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "keel:override:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(node string) string {
	return s.prefix + "node:" + node
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Set records an override.
func (s *Store) Set(ctx context.Context, node string, property domain.Property, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal override %s.%s: %w", node, property, err)
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.key(node), string(property), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(node), s.ttl)
	}

	// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: node})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get returns the overrides of node.
func (s *Store) Get(ctx context.Context, node string) (map[domain.Property]any, error) {
	fields, err := s.client.HGetAll(ctx, s.key(node)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	out := make(map[domain.Property]any, len(fields))
	for field, raw := range fields {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal override %s.%s: %w", node, field, err)
		}
		out[domain.Property(field)] = v
	}
	return out, nil
}

// Delete removes the overrides of node.
func (s *Store) Delete(ctx context.Context, node string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(node))
	pipe.ZRem(ctx, s.indexKey(), node)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the overrides below prefix. Expired nodes are pruned from the index lazily.
func (s *Store) List(ctx context.Context, prefix string) ([]domain.Override, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired overrides: %w", err)
	}

	nodes, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}

	var out []domain.Override
	for _, node := range nodes {
		if !memory.MatchesPrefix(node, prefix) {
			continue
		}
		props, err := s.Get(ctx, node)
		if err != nil {
			return nil, err
		}
		for p, v := range props {
			out = append(out, domain.Override{Node: node, Property: p, Value: v})
		}
	}
	memory.SortOverrides(out)
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
