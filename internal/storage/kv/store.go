// Package kv provides the namespaced key-value persistence the course store,
// progress tracker and device identity are written to.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written
var ErrNotFound = errors.New("kv: key not found")

// Store is a flat key-value store. Values are opaque bytes, writes are full overwrites
// and the last writer wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix and returns how many went
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// Namespace scopes a Store so every key is stored as "<name>_<key>"
type Namespace struct {
	Store
	name string
}

// WithNamespace wraps store under the given namespace
func WithNamespace(store Store, name string) *Namespace {
	return &Namespace{Store: store, name: name}
}

// Name returns the namespace name
func (n *Namespace) Name() string { return n.name }

func (n *Namespace) key(k string) string { return n.name + "_" + k }

func (n *Namespace) Get(ctx context.Context, key string) ([]byte, error) {
	return n.Store.Get(ctx, n.key(key))
}

func (n *Namespace) Set(ctx context.Context, key string, value []byte) error {
	return n.Store.Set(ctx, n.key(key), value)
}

func (n *Namespace) Delete(ctx context.Context, key string) error {
	return n.Store.Delete(ctx, n.key(key))
}

func (n *Namespace) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return n.Store.DeletePrefix(ctx, n.key(prefix))
}

// Clear removes everything in the namespace
func (n *Namespace) Clear(ctx context.Context) (int, error) {
	return n.DeletePrefix(ctx, "")
}
