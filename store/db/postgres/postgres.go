package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"log/slog"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/secretary/internal/profile"
	"github.com/hrygo/secretary/store"
)

// PostgreSQL is the production driver. Memory similarity search runs on pgvector.

//go:embed schema.sql
var schema string

type DB struct {
	db      *sql.DB
	q       querier
	tx      *sql.Tx
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		slog.Error("failed to ping database", "error", err)
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: db, q: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

func (d *DB) BeginTx(ctx context.Context) (store.Tx, error) {
	if d.tx != nil {
		return nil, errors.New("nested transactions are not supported")
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &DB{db: d.db, q: tx, tx: tx, profile: d.profile}, nil
}

func (d *DB) Commit() error {
	if d.tx == nil {
		return errors.New("not in a transaction")
	}
	return d.tx.Commit()
}

func (d *DB) Rollback() error {
	if d.tx == nil {
		return errors.New("not in a transaction")
	}
	if err := d.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
