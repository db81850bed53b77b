// Package dao defines the minimal persistence contract used to track
// dispatch records and other keyed engine entities.
package dao

import "context"

// Service is a generic store of entities of type T keyed by K.
type Service[K comparable, T any] interface {
	// Save stores or overwrites an entity.
	Save(ctx context.Context, value *T) error

	// Load returns an entity by key, or nil when absent.
	Load(ctx context.Context, key K) (*T, error)

	// Delete removes an entity by key.
	Delete(ctx context.Context, key K) error

	// List returns all stored entities.
	List(ctx context.Context) ([]*T, error)
}
