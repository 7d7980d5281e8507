package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/geoforce/internal/models"
)

// ErrKVNotFound is returned when a key has no value.
var ErrKVNotFound = fmt.Errorf("kv entry %w", models.ErrNotFound)

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// KVRepository stores string values under namespaced keys.
type KVRepository struct {
	db    *DB
	retry RetryPolicy
	now   func() time.Time
}

// NewKVRepository creates a repository over db.
func NewKVRepository(db *DB) *KVRepository {
	return &KVRepository{db: db, retry: DefaultRetryPolicy, now: time.Now}
}

// Set writes value under (namespace, key).
func (r *KVRepository) Set(ctx context.Context, namespace, key, value string) error {
	return r.db.TransactionWithRetry(ctx, r.retry, func(tx *sql.Tx) error {
		return r.set(ctx, tx, namespace, key, value)
	})
}

// SetBatch writes every entry in one transaction; either all are stored or none.
func (r *KVRepository) SetBatch(ctx context.Context, namespace string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.TransactionWithRetry(ctx, r.retry, func(tx *sql.Tx) error {
		for key, value := range values {
			if err := r.set(ctx, tx, namespace, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *KVRepository) set(ctx context.Context, exec execQuerier, namespace, key, value string) error {
	now := r.now().UTC()
	entry := &models.KVEntry{
		ID:        uuid.New().String(),
		Namespace: strings.TrimSpace(namespace),
		Key:       strings.TrimSpace(key),
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid kv entry: %w", err)
	}

	// UPDATE first so created_at survives rewrites.
	result, err := exec.ExecContext(ctx, `
		UPDATE kv_entries
		SET value = ?, updated_at = ?
		WHERE namespace = ? AND key = ?
	`, entry.Value, formatTime(now), entry.Namespace, entry.Key)
	if err != nil {
		return fmt.Errorf("failed to update kv entry: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO kv_entries (id, namespace, key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Namespace,
		entry.Key,
		entry.Value,
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			_, retryErr := exec.ExecContext(ctx, `
				UPDATE kv_entries SET value = ?, updated_at = ?
				WHERE namespace = ? AND key = ?
			`, entry.Value, formatTime(now), entry.Namespace, entry.Key)
			if retryErr == nil {
				return nil
			}
		}
		return fmt.Errorf("failed to insert kv entry: %w", err)
	}
	return nil
}

// Get returns the entry under (namespace, key), or ErrKVNotFound.
func (r *KVRepository) Get(ctx context.Context, namespace, key string) (*models.KVEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, namespace, key, value, created_at, updated_at
		FROM kv_entries
		WHERE namespace = ? AND key = ?
	`, strings.TrimSpace(namespace), strings.TrimSpace(key))
	return scanKV(row)
}

// List returns every entry in namespace ordered by key.
func (r *KVRepository) List(ctx context.Context, namespace string) ([]*models.KVEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, namespace, key, value, created_at, updated_at
		FROM kv_entries
		WHERE namespace = ?
		ORDER BY key
	`, strings.TrimSpace(namespace))
	if err != nil {
		return nil, fmt.Errorf("failed to query kv entries: %w", err)
	}
	defer rows.Close()

	out := make([]*models.KVEntry, 0)
	for rows.Next() {
		entry, err := scanKV(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating kv entries: %w", err)
	}
	return out, nil
}

// Delete removes (namespace, key). Missing keys return ErrKVNotFound.
func (r *KVRepository) Delete(ctx context.Context, namespace, key string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM kv_entries WHERE namespace = ? AND key = ?
	`, strings.TrimSpace(namespace), strings.TrimSpace(key))
	if err != nil {
		return fmt.Errorf("failed to delete kv entry: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrKVNotFound
	}
	return nil
}

func scanKV(scanner interface{ Scan(...any) error }) (*models.KVEntry, error) {
	var (
		entry     models.KVEntry
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&entry.ID, &entry.Namespace, &entry.Key, &entry.Value, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKVNotFound
		}
		return nil, fmt.Errorf("failed to scan kv entry: %w", err)
	}
	entry.CreatedAt = parseTime(createdAt)
	entry.UpdatedAt = parseTime(updatedAt)
	return &entry, nil
}
