package blob

import (
	"context"
	"sync"
	"time"
)

// Object is a staged upload held in memory.
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStager keeps uploads in process; used for local development and tests.
type MemoryStager struct {
	mu      sync.RWMutex
	objects map[string]Object
	now     func() time.Time
}

// NewMemoryStager creates an empty in-memory stager.
func NewMemoryStager() *MemoryStager {
	return &MemoryStager{objects: make(map[string]Object), now: time.Now}
}

func (m *MemoryStager) Stage(ctx context.Context, userID, filename, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := ObjectKey(userID, filename, m.now().UTC())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{ContentType: contentType, Data: append([]byte(nil), data...)}
	return key, nil
}

// Get returns a staged object by key.
func (m *MemoryStager) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len returns the number of staged objects.
func (m *MemoryStager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
