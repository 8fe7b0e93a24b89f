// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/shoeshelf/internal/models"
)

// ErrInvalidField is returned when a query names a field that is not a plain identifier.
var ErrInvalidField = errors.New("invalid field name")

// Store defines the interface for the hosted document store.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// InsertDocument persists a new document owned by ownerID.
	// The doc.ID and doc.CreatedAt fields will be populated by the store.
	InsertDocument(ctx context.Context, ownerID string, doc *models.Document) error

	// GetDocument retrieves a document and its owner.
	// Returns nil and no error if the document does not exist.
	GetDocument(ctx context.Context, ref models.Ref) (*models.Document, string, error)

	// QueryDocuments returns ownerID's documents in collection whose field equals value,
	// in insertion order. An empty field matches every document of the owner.
	QueryDocuments(ctx context.Context, collection, ownerID, field string, value any) ([]models.Document, error)

	// DeleteDocument removes ownerID's document. Deleting a missing document is not an error.
	DeleteDocument(ctx context.Context, ref models.Ref, ownerID string) error

	// CreateAnonymousUser records an identity issued at sign-in.
	CreateAnonymousUser(ctx context.Context, user *models.AnonymousUser) error

	// GetAnonymousUser retrieves an issued identity.
	// Returns nil and no error if it was never issued.
	GetAnonymousUser(ctx context.Context, id string) (*models.AnonymousUser, error)

	// RenewAnonymousUser moves an issued identity's expiry forward.
	RenewAnonymousUser(ctx context.Context, id string, expiresAt int64) error

	// Close releases any resources held by the store.
	Close() error
}
