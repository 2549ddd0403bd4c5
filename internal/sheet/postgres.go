package sheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema stores a sheet as a metadata row plus one row per data row.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS sheet_meta (
	sheet   TEXT PRIMARY KEY,
	version BIGINT NOT NULL DEFAULT 0,
	columns TEXT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS sheet_rows (
	sheet    TEXT NOT NULL REFERENCES sheet_meta(sheet) ON DELETE CASCADE,
	position INT  NOT NULL,
	cells    TEXT[] NOT NULL,
	PRIMARY KEY (sheet, position)
);`

// Postgres is a Backend storing sheets in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Postgres backend using pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the sheet tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure sheet schema: %w", err)
	}
	return nil
}

// Read loads the sheet inside a read-only repeatable-read transaction so the
// header, rows and version belong to the same snapshot.
func (p *Postgres) Read(ctx context.Context, sheet string) (Snapshot, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin read %s: %w", sheet, err)
	}
	defer tx.Rollback(ctx)

	snap := Snapshot{Sheet: sheet}
	err = tx.QueryRow(ctx,
		`SELECT version, columns FROM sheet_meta WHERE sheet = $1`, sheet,
	).Scan(&snap.Version, &snap.Table.Columns)
	if errors.Is(err, pgx.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read meta of %s: %w", sheet, err)
	}

	rows, err := tx.Query(ctx,
		`SELECT cells FROM sheet_rows WHERE sheet = $1 ORDER BY position`, sheet)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read rows of %s: %w", sheet, err)
	}
	cells, err := pgx.CollectRows(rows, pgx.RowTo[[]string])
	if err != nil {
		return Snapshot{}, fmt.Errorf("scan rows of %s: %w", sheet, err)
	}
	for _, c := range cells {
		snap.Table.Rows = append(snap.Table.Rows, fitRow(c, len(snap.Table.Columns)))
	}

	return snap, tx.Commit(ctx)
}

// Write replaces the sheet in one transaction. The metadata row is locked
// with SELECT ... FOR UPDATE before the version comparison.
func (p *Postgres) Write(ctx context.Context, sheet string, t Table, expected int64) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin write %s: %w", sheet, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO sheet_meta (sheet) VALUES ($1) ON CONFLICT (sheet) DO NOTHING`, sheet,
	); err != nil {
		return 0, fmt.Errorf("init meta of %s: %w", sheet, err)
	}

	var current int64
	if err := tx.QueryRow(ctx,
		`SELECT version FROM sheet_meta WHERE sheet = $1 FOR UPDATE`, sheet,
	).Scan(&current); err != nil {
		return 0, fmt.Errorf("lock %s: %w", sheet, err)
	}
	if current != expected {
		return 0, ErrVersionConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM sheet_rows WHERE sheet = $1`, sheet); err != nil {
		return 0, fmt.Errorf("clear %s: %w", sheet, err)
	}

	if len(t.Rows) > 0 {
		source := make([][]any, len(t.Rows))
		for i, r := range t.Rows {
			source[i] = []any{sheet, int32(i), fitRow(r, len(t.Columns))}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"sheet_rows"},
			[]string{"sheet", "position", "cells"},
			pgx.CopyFromRows(source),
		); err != nil {
			return 0, fmt.Errorf("copy rows of %s: %w", sheet, err)
		}
	}

	next := current + 1
	columns := t.Columns
	if columns == nil {
		columns = []string{}
	}
	if _, err := tx.Exec(ctx,
		`UPDATE sheet_meta SET version = $2, columns = $3 WHERE sheet = $1`,
		sheet, next, columns,
	); err != nil {
		return 0, fmt.Errorf("bump version of %s: %w", sheet, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s: %w", sheet, err)
	}
	return next, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
