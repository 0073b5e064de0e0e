package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-factory/pkg/store"
	backend "github.com/redis/go-redis/v9"
)

// Store implements store.Store on Redis. Records are JSON documents; each
// factory keeps a sorted index of ids ordered by creation time.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for records.
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

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "factory:",
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type document struct {
	Meta   store.Meta     `json:"meta"`
	Record map[string]any `json:"record"`
}

func (s *Store) key(identifier string) string {
	return s.prefix + "record:" + identifier
}

func (s *Store) indexKey(factory string) string {
	return s.prefix + "index:" + factory
}

// Save persists record, generating an id when ref.ID is empty.
func (s *Store) Save(ctx context.Context, ref store.Ref, record map[string]any) (store.Meta, error) {
	ref = ref.WithGeneratedID()
	identifier, err := ref.Identifier()
	if err != nil {
		return store.Meta{}, err
	}

	meta := store.Meta{ID: ref.ID, CreatedAt: s.now().UTC()}
	data, err := json.Marshal(document{Meta: meta, Record: record})
	if err != nil {
		return store.Meta{}, fmt.Errorf("redisstore: marshal %s: %w", identifier, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(identifier), data, s.ttl)
	pipe.ZAddNX(ctx, s.indexKey(ref.Factory), backend.Z{
		Score:  float64(meta.CreatedAt.UnixNano()),
		Member: ref.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return store.Meta{}, fmt.Errorf("redisstore: save %s: %w", identifier, err)
	}
	return meta, nil
}

// Load retrieves a record previously saved under ref.
func (s *Store) Load(ctx context.Context, ref store.Ref) (map[string]any, store.Meta, bool, error) {
	identifier, err := ref.Identifier()
	if err != nil {
		return nil, store.Meta{}, false, err
	}

	raw, err := s.client.Get(ctx, s.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, store.Meta{}, false, nil
		}
		return nil, store.Meta{}, false, fmt.Errorf("redisstore: load %s: %w", identifier, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, store.Meta{}, false, fmt.Errorf("redisstore: unmarshal %s: %w", identifier, err)
	}
	return doc.Record, doc.Meta, true, nil
}

// List returns the refs saved for factory, oldest first.
func (s *Store) List(ctx context.Context, factory string) ([]store.Ref, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(factory), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list %s: %w", factory, err)
	}
	refs := make([]store.Ref, len(ids))
	for i, id := range ids {
		refs[i] = store.Ref{Factory: factory, ID: id}
	}
	return refs, nil
}
