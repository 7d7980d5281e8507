package tasks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Proof is a captured image attached to a completed task.
type Proof struct {
	Data        []byte
	ContentType string
}

// ProofRecorder stores proof payloads and returns a reference for the task.
type ProofRecorder interface {
	RecordProof(ctx context.Context, taskID string, proof Proof) (string, error)
}

// DigestRecorder references proof by content hash without keeping the bytes.
type DigestRecorder struct{}

// RecordProof returns proof://sha256/<hex>.
func (DigestRecorder) RecordProof(_ context.Context, _ string, proof Proof) (string, error) {
	sum := sha256.Sum256(proof.Data)
	return "proof://sha256/" + hex.EncodeToString(sum[:]), nil
}

// DirRecorder writes proof images under Dir, one file per task.
type DirRecorder struct {
	Dir string
}

// RecordProof writes the payload and returns a file:// reference.
func (r DirRecorder) RecordProof(ctx context.Context, taskID string, proof Proof) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create proof dir: %w", err)
	}
	path := filepath.Join(r.Dir, sanitizeName(taskID)+extensionFor(proof.ContentType))
	if err := os.WriteFile(path, proof.Data, 0o644); err != nil {
		return "", fmt.Errorf("write proof: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	default:
		return ".bin"
	}
}

func sanitizeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
