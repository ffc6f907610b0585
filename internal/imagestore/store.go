// Package imagestore persists model-generated inline images to disk and hands
// back the client-facing URL that replaces them in text output.
package imagestore

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Store writes decoded images under one directory. Safe for concurrent use:
// every image gets a fresh name, nothing is ever rewritten.
type Store struct {
	dir     string
	baseURL string
}

// New creates a store rooted at dir; saved images are referenced as
// baseURL/<name>. The directory is created lazily on first save.
func New(dir, baseURL string) *Store {
	return &Store{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Save decodes the base64 payload and writes it under a fresh name derived
// from the mime type. Returns the URL the client should fetch.
func (s *Store) Save(mimeType, b64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode inline image: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	name := uuid.NewString() + extFor(mimeType)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	log.Debugf("saved inline image %s (%d bytes)", name, len(data))
	return s.baseURL + "/" + name, nil
}

func extFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
