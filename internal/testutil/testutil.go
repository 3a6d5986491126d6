// Package testutil provides shared helpers for integration tests that need a
// real database, plus builders for pipeline messages and questions.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/target/quiz-pipeline/internal/migrate"
)

// SetupTestDB opens the test database, applies production migrations and
// truncates pipeline tables. Tests are skipped when no database is reachable,
// unless TEST_REQUIRE_DB or TEST_REQUIRE_INFRA forces a hard failure (CI).
func SetupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		skipOrFail(t, fmt.Sprintf("open test database: %v", err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		skipOrFail(t, fmt.Sprintf("ping test database: %v (is the docker-compose test profile up?)", pingErr))
		return nil
	}

	if migrateErr := migrate.Run(ctx, db); migrateErr != nil {
		t.Fatalf("apply migrations: %v", migrateErr)
	}

	CleanupTestDB(t, db)
	return db
}

// CleanupTestDB empties pipeline tables between tests. question_options rows
// cascade from questions, so two statements cover the whole schema.
func CleanupTestDB(t testing.TB, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, table := range []string{"questions", "quiz_generations"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean table %s: %v", table, err)
		}
	}
}

// TeardownTestDB cleans up and closes the connection.
func TeardownTestDB(t testing.TB, db *sql.DB) {
	t.Helper()

	if db == nil {
		return
	}
	CleanupTestDB(t, db)
	if err := db.Close(); err != nil {
		t.Fatalf("close test database: %v", err)
	}
}

// testDSN builds the DSN from TEST_DB_* env vars. The default port 55432
// matches the docker-compose test profile; CI sets TEST_DB_PORT=5432.
func testDSN() string {
	host := envOr("TEST_DB_HOST", "localhost")
	port := envOr("TEST_DB_PORT", "55432")
	user := envOr("TEST_DB_USER", "quizpipeline")
	pass := envOr("TEST_DB_PASSWORD", "quizpipeline")
	name := envOr("TEST_DB_NAME", "quizpipeline")
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		user, pass, net.JoinHostPort(host, port), name)
}

func skipOrFail(t testing.TB, reason string) {
	t.Helper()
	if requireInfra() {
		t.Fatal(reason)
	}
	t.Skip(reason)
}

func requireInfra() bool {
	for _, key := range []string{"TEST_REQUIRE_DB", "TEST_REQUIRE_INFRA"} {
		switch strings.ToLower(os.Getenv(key)) {
		case "1", "true", "yes", "y":
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
