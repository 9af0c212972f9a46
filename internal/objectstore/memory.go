package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemoryStore keeps uploaded objects in a map. It stands in for S3 in tests
// and when the server runs with the memory backend end to end.
type MemoryStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	body        []byte
}

// NewMemoryStore returns an empty in-memory store serving URLs under baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: map[string]memoryObject{},
	}
}

func (m *MemoryStore) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("objectstore: object key is required")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read object body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{contentType: contentType, body: data}
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", m.baseURL, strings.TrimLeft(key, "/"))
}

// Object returns the stored body and content type for key.
func (m *MemoryStore) Object(key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", false
	}
	body := make([]byte, len(obj.body))
	copy(body, obj.body)
	return body, obj.contentType, true
}

// Len reports how many objects have been uploaded.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
