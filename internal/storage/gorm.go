package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Record struct {
	Key       string    `gorm:"column:record_key;primaryKey;size:255"`
	Value     string    `gorm:"column:record_value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Record) TableName() string {
	return "client_records"
}

type GormStore struct {
	DB *gorm.DB
}

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 10
		maxIdleConns    = 5
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

// NewSQLite opens a file-backed store; ":memory:" is accepted for tests.
func NewSQLite(ctx context.Context, path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	// sqlite serializes writers anyway and every ":memory:" connection is its own database
	sqlDB.SetMaxOpenConns(1)

	return newGormStore(ctx, db)
}

func NewPostgres(ctx context.Context, dsn string) (*GormStore, error) {
	if dsn == "" {
		return nil, errors.New("STORAGE_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return newGormStore(ctx, db)
}

func newGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate client_records: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Get(ctx context.Context, key string) (string, error) {
	var rec Record
	if err := s.DB.WithContext(ctx).Where("record_key = ?", key).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return rec.Value, nil
}

func (s *GormStore) Set(ctx context.Context, key, value string) error {
	return upsert(s.DB.WithContext(ctx), key, value)
}

func (s *GormStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Where("record_key IN ?", keys).Delete(&Record{}).Error
}

func (s *GormStore) Apply(ctx context.Context, ops ...Op) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if op.Delete {
				if err := tx.Where("record_key = ?", op.Key).Delete(&Record{}).Error; err != nil {
					return err
				}
				continue
			}
			if err := upsert(tx, op.Key, op.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func upsert(db *gorm.DB, key, value string) error {
	rec := Record{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"record_value", "updated_at"}),
	}).Create(&rec).Error
}
