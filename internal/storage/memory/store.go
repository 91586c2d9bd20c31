package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/storage"
)

// Store is an in-memory implementation of DigestStore
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Digest
	byPublic map[string]*domain.Digest
	order    []*domain.Digest
}

var _ storage.DigestStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		byID:     make(map[string]*domain.Digest),
		byPublic: make(map[string]*domain.Digest),
	}
}

func (s *Store) CreateDigest(ctx context.Context, d *domain.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	if _, exists := s.byID[d.ID]; exists {
		return fmt.Errorf("digest %s: %w", d.ID, storage.ErrDuplicate)
	}
	if _, exists := s.byPublic[d.PublicID]; exists {
		return fmt.Errorf("digest %s: %w", d.PublicID, storage.ErrDuplicate)
	}

	stored := *d
	s.byID[d.ID] = &stored
	s.byPublic[d.PublicID] = &stored
	s.order = append(s.order, &stored)
	return nil
}

func (s *Store) GetDigest(ctx context.Context, id string) (*domain.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (s *Store) GetDigestByPublicID(ctx context.Context, publicID string) (*domain.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.byPublic[publicID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (s *Store) ListDigests(ctx context.Context, opts storage.ListOptions) ([]*domain.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Digest, 0, len(s.order))
	// Insertion order is creation order, so walk backwards for newest first.
	for i := len(s.order) - 1; i >= 0; i-- {
		d := *s.order[i]
		result = append(result, &d)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []*domain.Digest{}, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (s *Store) Close() error {
	return nil
}
