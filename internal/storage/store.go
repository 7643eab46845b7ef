// Package storage is the key-value persistence used for the client's cached
// state. Values are opaque strings; typed access goes through Decode/Encode.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrCorrupt  = errors.New("record corrupt")
)

type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove ignores keys that do not exist.
	Remove(ctx context.Context, keys ...string) error
	// Apply performs all ops or none of them.
	Apply(ctx context.Context, ops ...Op) error
	Close() error
}

type Op struct {
	Key    string
	Value  string
	Delete bool
}

func Put(key, value string) Op {
	return Op{Key: key, Value: value}
}

func Delete(key string) Op {
	return Op{Key: key, Delete: true}
}
