package sheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// dialect holds the statements that differ between SQL engines.
type dialect struct {
	driver string
	schema []string
	lock   string // selects the version of a sheet, locking the row if supported
	upsert string
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS sheet_meta (
			sheet   TEXT PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 0,
			header  TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			sheet TEXT NOT NULL,
			pos   INTEGER NOT NULL,
			cells TEXT NOT NULL,
			PRIMARY KEY (sheet, pos)
		)`,
	},
	// BEGIN IMMEDIATE (see the DSN) already holds the write lock.
	lock: `SELECT version FROM sheet_meta WHERE sheet = ?`,
	upsert: `INSERT INTO sheet_meta (sheet, version, header) VALUES (?, ?, ?)
		ON CONFLICT (sheet) DO UPDATE SET version = excluded.version, header = excluded.header`,
}

var mysqlDialect = dialect{
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS sheet_meta (
			sheet   VARCHAR(191) PRIMARY KEY,
			version BIGINT NOT NULL DEFAULT 0,
			header  TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			sheet VARCHAR(191) NOT NULL,
			pos   INT NOT NULL,
			cells MEDIUMTEXT NOT NULL,
			PRIMARY KEY (sheet, pos)
		)`,
	},
	lock: `SELECT version FROM sheet_meta WHERE sheet = ? FOR UPDATE`,
	upsert: `INSERT INTO sheet_meta (sheet, version, header) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE version = VALUES(version), header = VALUES(header)`,
}

// SQL is a Backend storing sheets in SQLite or MySQL through sqlx.
// The header and every row are JSON-encoded arrays of cell text.
type SQL struct {
	db *sqlx.DB
	d  dialect
}

type sqlMeta struct {
	Version int64  `db:"version"`
	Header  string `db:"header"`
}

type sqlRow struct {
	Sheet string `db:"sheet"`
	Pos   int    `db:"pos"`
	Cells string `db:"cells"`
}

// OpenSQLite opens (or creates) the database file at path.
// Transactions start with BEGIN IMMEDIATE so writers serialise on the file lock.
func OpenSQLite(path string) (*SQL, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000", path)
	return openSQL(sqliteDialect, dsn)
}

// OpenMySQL connects to the MySQL database named by dsn
// (user:pass@tcp(host:port)/db?parseTime=true).
func OpenMySQL(dsn string) (*SQL, error) {
	return openSQL(mysqlDialect, dsn)
}

func openSQL(d dialect, dsn string) (*SQL, error) {
	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure %s schema: %w", d.driver, err)
		}
	}
	return &SQL{db: db, d: d}, nil
}

func (s *SQL) Read(ctx context.Context, sheet string) (Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin read %s: %w", sheet, err)
	}
	defer tx.Rollback()

	snap := Snapshot{Sheet: sheet}

	var meta sqlMeta
	err = tx.GetContext(ctx, &meta, `SELECT version, header FROM sheet_meta WHERE sheet = ?`, sheet)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read meta of %s: %w", sheet, err)
	}
	snap.Version = meta.Version
	if err := json.Unmarshal([]byte(meta.Header), &snap.Table.Columns); err != nil {
		return Snapshot{}, fmt.Errorf("decode header of %s: %w", sheet, err)
	}
	if len(snap.Table.Columns) == 0 {
		snap.Table.Columns = nil
	}

	var encoded []string
	if err := tx.SelectContext(ctx, &encoded,
		`SELECT cells FROM sheet_rows WHERE sheet = ? ORDER BY pos`, sheet,
	); err != nil {
		return Snapshot{}, fmt.Errorf("read rows of %s: %w", sheet, err)
	}
	for i, e := range encoded {
		var cells []string
		if err := json.Unmarshal([]byte(e), &cells); err != nil {
			return Snapshot{}, fmt.Errorf("decode row %d of %s: %w", i, sheet, err)
		}
		snap.Table.Rows = append(snap.Table.Rows, fitRow(cells, len(snap.Table.Columns)))
	}

	return snap, tx.Commit()
}

func (s *SQL) Write(ctx context.Context, sheet string, t Table, expected int64) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin write %s: %w", sheet, err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.GetContext(ctx, &current, s.d.lock, sheet)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lock %s: %w", sheet, err)
	}
	if current != expected {
		return 0, ErrVersionConflict
	}

	header, err := json.Marshal(nonNil(t.Columns))
	if err != nil {
		return 0, err
	}

	next := current + 1
	if _, err := tx.ExecContext(ctx, s.d.upsert, sheet, next, string(header)); err != nil {
		return 0, fmt.Errorf("store meta of %s: %w", sheet, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet = ?`, sheet); err != nil {
		return 0, fmt.Errorf("clear %s: %w", sheet, err)
	}

	if len(t.Rows) > 0 {
		rows := make([]sqlRow, len(t.Rows))
		for i, r := range t.Rows {
			b, err := json.Marshal(fitRow(r, len(t.Columns)))
			if err != nil {
				return 0, err
			}
			rows[i] = sqlRow{Sheet: sheet, Pos: i, Cells: string(b)}
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO sheet_rows (sheet, pos, cells) VALUES (:sheet, :pos, :cells)`, rows,
		); err != nil {
			return 0, fmt.Errorf("insert rows of %s: %w", sheet, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", sheet, err)
	}
	return next, nil
}

// Close closes the database.
func (s *SQL) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
