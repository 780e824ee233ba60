package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/pkg/errors"
	// Import the pure Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/secretary/internal/profile"
	"github.com/hrygo/secretary/store"
)

// SQLite is the default driver for single-node deployments and tests.
// Vector similarity is computed in process over the newest entries of a tenant.

//go:embed schema.sql
var schema string

type DB struct {
	db      *sql.DB
	q       querier
	tx      *sql.Tx
	profile *profile.Profile
}

// NewDB opens the database file at profile.DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil || profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", profile.DSN)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// Single writer. Every statement, transactional or not, shares this connection.
	db.SetMaxOpenConns(1)

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
