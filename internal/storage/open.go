package storage

import (
	"context"
	"fmt"
)

const redisPrefix = "foodclient:"

// Open returns the durable store selected by driver.
func Open(ctx context.Context, driver, dsn, redisURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(ctx, dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	case "redis":
		return NewRedis(ctx, redisURL, redisPrefix)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
