package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	importapp "github.com/notaria/backoffice/internal/application/import"
)

// MemoryExportArchive keeps archived exports in process memory.
// Selected with storage.backend = "memory" for local runs without a bucket.
type MemoryExportArchive struct {
	mu      sync.RWMutex
	prefix  string
	objects map[string][]byte
}

// NewMemoryExportArchive creates a new MemoryExportArchive
func NewMemoryExportArchive(prefix string) *MemoryExportArchive {
	return &MemoryExportArchive{
		prefix:  prefix,
		objects: make(map[string][]byte),
	}
}

// Ensure MemoryExportArchive implements ExportArchive
var _ importapp.ExportArchive = (*MemoryExportArchive)(nil)

// Archive stores a copy of data under the same key layout as S3ExportArchive
func (s *MemoryExportArchive) Archive(_ context.Context, digest, filename string, data []byte) (string, error) {
	if digest == "" {
		return "", errors.New("content digest is required")
	}
	key := archiveKey(s.prefix, time.Now().UTC(), digest, filename)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		s.objects[key] = append([]byte(nil), data...)
	}
	return key, nil
}

// Get returns the archived bytes for key
func (s *MemoryExportArchive) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

// Len returns the number of archived objects
func (s *MemoryExportArchive) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
