package sheet

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ----------------------------------------------------------------------------
// Postgres Tests (require TEST_DATABASE_URL)
// ----------------------------------------------------------------------------

func TestPostgres_Contract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	backendContract(t, func(t *testing.T) Backend {
		ctx := context.Background()
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		t.Cleanup(pool.Close)

		p := NewPostgres(pool)
		if err := p.EnsureSchema(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := pool.Exec(ctx, `DELETE FROM sheet_meta`); err != nil {
			t.Fatal(err)
		}
		return p
	})
}

func TestMySQL_Contract(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	backendContract(t, func(t *testing.T) Backend {
		db, err := OpenMySQL(dsn)
		if err != nil {
			t.Fatalf("OpenMySQL error = %v", err)
		}
		t.Cleanup(func() { db.Close() })
		if _, err := db.db.Exec(`DELETE FROM sheet_rows`); err != nil {
			t.Fatal(err)
		}
		if _, err := db.db.Exec(`DELETE FROM sheet_meta`); err != nil {
			t.Fatal(err)
		}
		return db
	})
}
