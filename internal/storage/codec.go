package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Decode reads key and unmarshals it into T. It returns ErrNotFound for a
// missing key and ErrCorrupt when the stored value does not parse.
func Decode[T any](ctx context.Context, s Store, key string) (T, error) {
	var out T
	raw, err := s.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w: %v", key, ErrCorrupt, err)
	}
	return out, nil
}

// Lookup is Decode for callers that treat corrupt data as absent.
func Lookup[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	v, err := Decode[T](ctx, s, key)
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorrupt):
		return v, false, nil
	default:
		return v, false, err
	}
}

func Marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(b), nil
}

func Encode(ctx context.Context, s Store, key string, v any) error {
	raw, err := Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw)
}
