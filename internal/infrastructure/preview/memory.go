package preview

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aushadhi/client/internal/domain"
)

// previewItem represents a single preview blob with expiration
type previewItem struct {
	Data        []byte
	ContentType string
	Expiration  time.Time
}

// MemoryStore is a thread-safe in-memory preview store with TTL support.
// Refs behave like temporary object URLs: valid until revoked or expired.
type MemoryStore struct {
	data  map[string]previewItem
	mutex sync.RWMutex
	done  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a new in-memory preview store
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		data: make(map[string]previewItem),
		done: make(chan struct{}),
	}

	// Start cleanup goroutine to remove expired previews every minute
	go store.cleanupExpired(time.Minute)

	return store
}

// Create stores a copy of data and returns its ref
func (s *MemoryStore) Create(ctx context.Context, data []byte, contentType string, ttl time.Duration) (string, error) {
	buf := make([]byte, len(data))
	copy(buf, data)

	ref := uuid.NewString()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[ref] = previewItem{
		Data:        buf,
		ContentType: contentType,
		Expiration:  time.Now().Add(ttl),
	}
	return ref, nil
}

// Get retrieves a preview by ref
func (s *MemoryStore) Get(ctx context.Context, ref string) (*domain.Preview, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.data[ref]
	if !exists {
		return nil, domain.ErrPreviewNotFound
	}

	// Check if expired
	if time.Now().After(item.Expiration) {
		return nil, domain.ErrPreviewNotFound
	}

	return &domain.Preview{Data: item.Data, ContentType: item.ContentType}, nil
}

// Revoke releases a preview. Revoking an unknown ref is a no-op.
func (s *MemoryStore) Revoke(ctx context.Context, ref string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, ref)
	return nil
}

// cleanupExpired removes expired previews periodically
func (s *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.removeExpired(time.Now())
		}
	}
}

func (s *MemoryStore) removeExpired(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for ref, item := range s.data {
		if now.After(item.Expiration) {
			delete(s.data, ref)
		}
	}
}

// Size returns the current number of live and not-yet-swept previews
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// Close stops the cleanup goroutine and drops every preview
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data = make(map[string]previewItem)
}
