package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryDocumentStore is an in-memory document store for development and
// tests. Signed URLs are fake but unique per (bucket, key, issue count) so
// callers can assert refresh behavior.
type MemoryDocumentStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	issued  int
}

// NewMemoryDocumentStore creates an empty in-memory store
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		objects: make(map[string]memoryObject),
	}
}

func memKey(bucket, key string) string {
	return bucket + "|" + key
}

// Upload writes an object, replacing any previous version under the key.
func (s *MemoryDocumentStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[memKey(bucket, key)] = memoryObject{data: copied, contentType: contentType}
	return nil
}

// SignedURL returns a fake time-limited URL, or ErrObjectNotFound.
func (s *MemoryDocumentStore) SignedURL(ctx context.Context, bucket, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[memKey(bucket, key)]; !ok {
		return "", ErrObjectNotFound
	}
	s.issued++
	return fmt.Sprintf("https://storage.local/%s/%s?sig=%d", bucket, key, s.issued), nil
}

// Exists checks if an object exists in storage.
func (s *MemoryDocumentStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[memKey(bucket, key)]
	return ok, nil
}

// List returns the object names directly under a prefix, without the prefix.
func (s *MemoryDocumentStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	full := memKey(bucket, prefix)

	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for k := range s.objects {
		if strings.HasPrefix(k, full) {
			names = append(names, strings.TrimPrefix(k, full))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Download fetches an object's bytes, or ErrObjectNotFound.
func (s *MemoryDocumentStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[memKey(bucket, key)]
	if !ok {
		return nil, ErrObjectNotFound
	}
	copied := make([]byte, len(obj.data))
	copy(copied, obj.data)
	return copied, nil
}

// Delete removes an object. Deleting a missing key is not an error.
func (s *MemoryDocumentStore) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, memKey(bucket, key))
	return nil
}

// ContentType reports the stored content type for assertions in tests.
func (s *MemoryDocumentStore) ContentType(bucket, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[memKey(bucket, key)].contentType
}
