// Package pgxutil bridges database/sql connections to pgx-native transactions
// so repositories can use pgx features while the rest of the application holds
// a plain *sql.DB.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// WithSQLTx runs fn inside a database/sql transaction. Commit happens only
// when fn returns nil; any other path rolls back.
func WithSQLTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		rerr := tx.Rollback()
		if rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// WithPgxTx runs fn inside a pgx-native transaction, reaching the *pgx.Conn
// through the stdlib driver bridge. Same commit/rollback contract as
// WithSQLTx.
func WithPgxTx(ctx context.Context, db *sql.DB, fn func(pgx.Tx) error) error {
	return withPgxConn(ctx, db, func(conn *pgx.Conn) error {
		tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin pgx tx: %w", err)
		}
		defer func() {
			// Rollback after a successful commit returns ErrTxClosed; that
			// path is fine and everything else was already surfaced by fn.
			_ = tx.Rollback(ctx)
		}()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit pgx tx: %w", err)
		}
		return nil
	})
}

// withPgxConn checks a connection out of the pool and unwraps the raw
// *pgx.Conn behind the stdlib driver for the duration of fn.
func withPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		bridged, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("driver connection is %T, expected *stdlib.Conn", driverConn)
		}
		return fn(bridged.Conn())
	})
}
