// Package dbutil provides the SQL connection and transaction primitives shared by
// storage layers.
//
// Core Components:
//   - Querier: transaction-agnostic query interface satisfied by *sqlx.DB and *sqlx.Tx
//   - Connect: configurable connection establishment for postgres and sqlite
//   - WithTx / QuerierFrom: context-carried transactions
//   - InChunks: splits large IN (...) argument lists
package dbutil

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // Registers the postgres driver
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/threadline-dev/threadline/shared/config"
)

// Querier is satisfied by both *sqlx.DB (single operations on the pool) and *sqlx.Tx
// (operations within a transaction).
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// =========================================================================
// Connection Management
// =========================================================================

type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns pool settings suitable for the API server.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// LightweightConnectionConfig is used by CLI commands and by sqlite, where a single
// writer connection avoids SQLITE_BUSY errors.
func LightweightConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 0,
		ConnMaxIdleTime: 0,
	}
}

// Connect opens and pings a database described by the config.
func Connect(ctx context.Context, dbCfg config.Database, connCfg ConnectionConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(dbCfg.Driver, dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(connCfg.MaxOpenConns)
	db.SetMaxIdleConns(connCfg.MaxIdleConns)
	db.SetConnMaxLifetime(connCfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(connCfg.ConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dbCfg.Driver == config.DriverSqlite {
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure sqlite: %w", err)
		}
	}

	return db, nil
}

// Builder returns a squirrel statement builder with the placeholder format of the driver.
func Builder(driver string) sq.StatementBuilderType {
	if driver == config.DriverPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// =========================================================================
// Transaction Helpers
// =========================================================================

type txKey struct{}

// QuerierFrom returns the transaction stored in ctx by WithTx, or db when there is none.
func QuerierFrom(ctx context.Context, db *sqlx.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return ok
}

// WithTx executes fn within a transaction carried by the context passed to fn.
// If ctx already carries a transaction, fn joins it. If fn returns an error the
// transaction is rolled back, otherwise committed.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if transaction is already committed

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// =========================================================================
// Batching
// =========================================================================

// MaxInArgs bounds the number of bind parameters in a single IN (...) list. Both
// postgres (65535) and sqlite (32766) have limits well above it.
const MaxInArgs = 500

// InChunks calls fn for consecutive slices of ids of at most MaxInArgs elements.
func InChunks[T any](ids []T, fn func(chunk []T) error) error {
	for start := 0; start < len(ids); start += MaxInArgs {
		end := min(start+MaxInArgs, len(ids))
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}
