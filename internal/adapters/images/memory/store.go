package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"livestock-registry/internal/ports/images"
)

// Store es un images.Store en memoria para dev y tests.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
	baseURL string
}

func NewStore() *Store {
	return &Store{
		objects: make(map[string][]byte),
		baseURL: "https://images.local",
	}
}

var _ images.Store = (*Store)(nil)

func (s *Store) Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("memory images: key required")
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.objects[key] = b
	s.mu.Unlock()

	return s.baseURL + "/" + key, nil
}

// Get expone el contenido guardado (solo para tests/dev).
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}
