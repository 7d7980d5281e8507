package persist

import (
	"context"
	"errors"
	"sync"

	"github.com/tOgg1/geoforce/internal/db"
)

// KV is the durable string key-value boundary.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// BatchKV writes several keys atomically.
type BatchKV interface {
	KV
	SetBatch(ctx context.Context, values map[string]string) error
}

// SQLiteKV adapts db.KVRepository to KV within one namespace.
type SQLiteKV struct {
	repo      *db.KVRepository
	namespace string
}

// NewSQLiteKV creates a KV scoped to namespace.
func NewSQLiteKV(repo *db.KVRepository, namespace string) *SQLiteKV {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &SQLiteKV{repo: repo, namespace: namespace}
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := s.repo.Get(ctx, s.namespace, key)
	if errors.Is(err, db.ErrKVNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, s.namespace, key, value)
}

func (s *SQLiteKV) SetBatch(ctx context.Context, values map[string]string) error {
	return s.repo.SetBatch(ctx, s.namespace, values)
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	err := s.repo.Delete(ctx, s.namespace, key)
	if errors.Is(err, db.ErrKVNotFound) {
		return nil
	}
	return err
}

// MemoryKV is a process-local KV.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]string

	// ReadErr and WriteErr, when set, are returned by every read or write.
	ReadErr  error
	WriteErr error
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return "", false, m.ReadErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.data[key] = value
	return nil
}

func (m *MemoryKV) SetBatch(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	delete(m.data, key)
	return nil
}
