package cart

import (
	"context"
	"sync"

	"github.com/ashendes/storefront-checkout/internal/models"
)

// MemoryStore keeps carts in process memory
type MemoryStore struct {
	carts map[string][]models.CartLine
	mutex sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]models.CartLine)}
}

func (s *MemoryStore) Lines(_ context.Context, sessionID string) ([]models.CartLine, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return copyLines(s.carts[sessionID]), nil
}

func (s *MemoryStore) Add(_ context.Context, sessionID string, line models.CartLine) ([]models.CartLine, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	lines, err := addLine(copyLines(s.carts[sessionID]), line)
	if err != nil {
		return nil, err
	}
	s.carts[sessionID] = lines
	return copyLines(lines), nil
}

func (s *MemoryStore) UpdateQuantity(_ context.Context, sessionID, productID, variantKey string, quantity int) ([]models.CartLine, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	lines, err := updateQuantity(copyLines(s.carts[sessionID]), productID, variantKey, quantity)
	if err != nil {
		return nil, err
	}
	s.carts[sessionID] = lines
	return copyLines(lines), nil
}

func (s *MemoryStore) Remove(_ context.Context, sessionID, productID, variantKey string) ([]models.CartLine, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	lines, err := removeLine(copyLines(s.carts[sessionID]), productID, variantKey)
	if err != nil {
		return nil, err
	}
	s.carts[sessionID] = lines
	return copyLines(lines), nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.carts, sessionID)
	return nil
}
