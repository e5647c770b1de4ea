package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/FeliksML/web-cellar-sub000/internal/storage"
)

// fileEntry is an uploaded file held in memory.
type fileEntry struct {
	ContentType string
	Data        []byte
}

// Storage implements storage.Storage using an in-memory map. Files are
// served back by Open, which lets the development server expose them.
type Storage struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
}

// New creates a new in-memory storage instance whose URLs start with baseURL.
func New(baseURL string) *Storage {
	return &Storage{
		files:   make(map[string]*fileEntry),
		baseURL: baseURL,
	}
}

// Upload reads the file into memory and returns its URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}

	s.mu.Lock()
	s.files[input.Key] = &fileEntry{ContentType: input.ContentType, Data: data}
	s.mu.Unlock()

	return &storage.UploadResult{
		Key: input.Key,
		URL: storage.PublicURL(s.baseURL, input.Key),
	}, nil
}

// Delete removes a file from memory.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.files, key)
	s.mu.Unlock()
	return nil
}

// Open returns the content and type of a stored file.
func (s *Storage) Open(key string) (io.ReadSeeker, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.files[key]
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(entry.Data), entry.ContentType, true
}

// Len returns the number of stored files.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
