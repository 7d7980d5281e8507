package models

import (
	"strings"
	"time"
)

// KVEntry is one value stored under a namespaced key.
type KVEntry struct {
	ID        string    `json:"id"`
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (kv *KVEntry) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(kv.Namespace) == "" {
		validation.AddMessage("namespace", "namespace is required")
	}
	if strings.TrimSpace(kv.Key) == "" {
		validation.AddMessage("key", "key is required")
	}
	if kv.Value == "" {
		validation.AddMessage("value", "value is required")
	}
	return validation.Err()
}
