package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestWithRetry_RetriesOnBusy(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetry_StopsOnNonBusy(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond}, func() error {
		attempts++
		return errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestWithRetry_StopsAfterMaxAttempts(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), RetryPolicy{MaxAttempts: 2, BaseBackoff: time.Millisecond}, func() error {
		attempts++
		return errors.New("SQLITE_BUSY")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestWithRetry_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := withRetry(ctx, DefaultRetryPolicy, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatal("fn ran after cancellation")
	}
}

func TestTransactionWithRetry(t *testing.T) {
	database := setupTestDB(t)
	attempts := 0

	err := database.TransactionWithRetry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond}, func(tx *sql.Tx) error {
		attempts++
		if attempts < 2 {
			return errors.New("database is locked")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	err := database.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv_entries (id, namespace, key, value, created_at, updated_at) VALUES ('x', 'ns', 'k', 'v', '', '')`); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_entries`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d rows", count)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	version, err := database.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("expected version %d, got %d", len(migrations), version)
	}
}

func TestErrorClassificationUsesSQLiteCodes(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	insert := `INSERT INTO events (id, timestamp, type, entity_type, entity_id) VALUES ('e1', '', 'task.created', 'task', 't1')`
	if _, err := database.ExecContext(ctx, insert); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := database.ExecContext(ctx, insert)
	if err == nil {
		t.Fatal("expected duplicate id to fail")
	}
	if !isUniqueConstraintError(err) {
		t.Fatalf("expected unique constraint error, got %v", err)
	}
	if isBusyError(err) {
		t.Fatalf("constraint error classified as busy: %v", err)
	}
	if isBusyError(context.Canceled) {
		t.Fatal("context cancellation classified as busy")
	}
}
