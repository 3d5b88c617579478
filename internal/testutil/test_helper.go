// Package testutil prepares a Postgres database for integration tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Anonimus1221/hbuilds-chat/internal/database"
)

func ProjectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "../../")
	return root
}

// DbInit connects to TEST_DB_URL and migrates a clean schema. The test is
// skipped when no test database is configured. Everything is rolled back
// when the test ends.
func DbInit(t testing.TB) *pgxpool.Pool {
	t.Helper()

	if err := godotenv.Load(filepath.Join(ProjectRoot(), ".env")); err != nil {
		t.Logf("failed to load .env file: %+v", err)
	}

	testURL := os.Getenv("TEST_DB_URL")
	if testURL == "" {
		t.Skip("TEST_DB_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, testURL)
	if err != nil {
		t.Fatalf("could not connect to the postgresql database: %v", err)
	}

	if err := database.Reset(pool); err != nil {
		pool.Close()
		t.Fatalf("%+v", err)
	}
	if err := database.Migrate(pool); err != nil {
		pool.Close()
		t.Fatalf("%+v", err)
	}

	t.Cleanup(func() {
		if err := database.Reset(pool); err != nil {
			t.Errorf("%+v", err)
		}
		pool.Close()
	})

	return pool
}
