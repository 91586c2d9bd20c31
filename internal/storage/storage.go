// Package storage defines the digest persistence contract.
package storage

import (
	"context"
	"errors"

	"github.com/tjfontaine/meeting-digest/internal/domain"
)

var (
	// ErrNotFound is returned when no digest matches the lookup.
	ErrNotFound = errors.New("digest not found")

	// ErrDuplicate is returned when a digest id or public id already exists.
	ErrDuplicate = errors.New("digest already exists")
)

// DigestStore is an append-only record store for digests. Records are never
// updated or deleted.
type DigestStore interface {
	// CreateDigest persists d. An empty ID or zero CreatedAt is filled in.
	CreateDigest(ctx context.Context, d *domain.Digest) error

	GetDigest(ctx context.Context, id string) (*domain.Digest, error)
	GetDigestByPublicID(ctx context.Context, publicID string) (*domain.Digest, error)

	// ListDigests returns digests newest first.
	ListDigests(ctx context.Context, opts ListOptions) ([]*domain.Digest, error)

	Close() error
}

// ListOptions bounds a listing. A zero Limit means no limit.
type ListOptions struct {
	Limit  int
	Offset int
}
