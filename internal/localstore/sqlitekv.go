package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type kvEntry struct {
	bun.BaseModel `bun:"table:kv_entries"`

	Key   string `bun:"name,pk"`
	Value string `bun:"value,notnull"`
}

// SQLiteKV stores each key as a row in a single SQLite table.
type SQLiteKV struct {
	db *bun.DB
}

var _ KV = (*SQLiteKV)(nil)

func NewSQLiteKV(ctx context.Context, path string) (*SQLiteKV, error) {
	conn, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite: %w", err)
	}

	// sqlite allows one writer at a time
	conn.SetMaxOpenConns(1)

	db := bun.NewDB(conn, sqlitedialect.New())

	if _, err := db.NewCreateTable().Model((*kvEntry)(nil)).IfNotExists().Exec(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_entries table: %w", err)
	}

	return &SQLiteKV{db: db}, nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	entry := new(kvEntry)

	if err := s.db.NewSelect().Model(entry).Where("name = ?", key).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}

	return entry.Value, true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key string, value string) error {
	entry := &kvEntry{Key: key, Value: value}

	if _, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx); err != nil {
		return err
	}

	return nil
}

func (s *SQLiteKV) Remove(ctx context.Context, key string) error {
	if _, err := s.db.NewDelete().Model((*kvEntry)(nil)).Where("name = ?", key).Exec(ctx); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
