// Package blob stores receipt images on the local filesystem.
package blob

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// receiptsPrefix is the subdirectory receipt images land in, relative to the
// store root.
const receiptsPrefix = "receipts"

// LocalStore implements service.BlobStore on a directory tree. References are
// paths relative to the root, served by the HTTP layer under baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a store rooted at root. Saved references resolve to
// URLs under baseURL, typically "/uploads".
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("blob store root cannot be empty")
	}
	if err := os.MkdirAll(filepath.Join(root, receiptsPrefix), 0750); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Root returns the directory the store writes under.
func (s *LocalStore) Root() string {
	return s.root
}

// Save writes data under a fresh name derived from originalName's extension
// and returns the stored reference.
func (s *LocalStore) Save(ctx context.Context, data []byte, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context error: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("blob data cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	ref := path.Join(receiptsPrefix, uuid.NewString()+ext)

	if err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(ref)), data, 0640); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return ref, nil
}

// URLFor resolves a stored reference to its retrievable URL.
func (s *LocalStore) URLFor(ref string) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + strings.TrimPrefix(ref, "/")
}
