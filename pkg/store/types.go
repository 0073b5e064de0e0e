package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRef is returned when a Ref cannot produce a storage key.
var ErrInvalidRef = errors.New("store: invalid ref")

// Ref identifies one persisted record produced by a factory.
type Ref struct {
	Factory string
	ID      string
}

// Meta is storage-owned metadata returned from Save and Load.
type Meta struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Store saves and loads flattened attribute records.
type Store interface {
	Save(ctx context.Context, ref Ref, record map[string]any) (Meta, error)
	Load(ctx context.Context, ref Ref) (record map[string]any, meta Meta, ok bool, err error)
	List(ctx context.Context, factory string) ([]Ref, error)
}

// Identifier returns the canonical "<factory>/<id>" key.
func (r Ref) Identifier() (string, error) {
	factory := strings.TrimSpace(r.Factory)
	id := strings.TrimSpace(r.ID)
	if factory == "" {
		return "", fmt.Errorf("%w: factory is required", ErrInvalidRef)
	}
	if id == "" {
		return "", fmt.Errorf("%w: id is required for factory %q", ErrInvalidRef, factory)
	}
	return factory + "/" + id, nil
}

// WithGeneratedID returns ref with a fresh UUID when ID is empty.
func (r Ref) WithGeneratedID() Ref {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	return r
}

// CloneMeta returns a copy of meta with Extra detached.
func CloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}

// CloneRecord returns a shallow copy of record.
func CloneRecord(record map[string]any) map[string]any {
	if record == nil {
		return nil
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	return out
}
