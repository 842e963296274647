package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/seedsindex/internal/ledger"
)

// Keys returns every stored key in lexical order.
func (l *Ledger) Keys(ctx context.Context) ([]ledger.Key, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT key FROM entries ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []ledger.Key
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list keys: scan: %w", err)
		}
		k, err := ledger.ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Value reads the current value under key.
func (l *Ledger) Value(ctx context.Context, key ledger.Key) (string, bool, error) {
	var v string
	err := l.db.QueryRowContext(ctx, `SELECT value FROM entries WHERE key = ?`, key.Hex()).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read value %s: %w", key, err)
	}
	return v, true, nil
}

// SetValue stores value under key and appends to the update log.
func (l *Ledger) SetValue(ctx context.Context, key ledger.Key, value string) (ledger.Receipt, error) {
	if value == "" {
		return l.DeleteValue(ctx, key)
	}
	return l.write(ctx, key, value, `
		INSERT INTO entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key.Hex(), value)
}

// DeleteValue removes key and appends an empty-value update.
func (l *Ledger) DeleteValue(ctx context.Context, key ledger.Key) (ledger.Receipt, error) {
	return l.write(ctx, key, "", `DELETE FROM entries WHERE key = ?`, key.Hex())
}

// write applies the entry mutation and logs the update in one transaction.
func (l *Ledger) write(ctx context.Context, key ledger.Key, value, stmt string, args ...any) (ledger.Receipt, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("write %s: begin tx: %w", key, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return ledger.Receipt{}, fmt.Errorf("write %s: %w", key, err)
	}

	txHash := uuid.Must(uuid.NewV7()).String()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO updates (key, value, tx_hash) VALUES (?, ?, ?)`,
		key.Hex(), value, txHash,
	)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("write %s: log update: %w", key, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("write %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return ledger.Receipt{}, fmt.Errorf("write %s: commit: %w", key, err)
	}
	return ledger.Receipt{TxHash: txHash, Block: uint64(seq)}, nil
}
