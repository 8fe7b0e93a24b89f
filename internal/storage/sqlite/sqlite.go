// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/shoeshelf/internal/models"
	"github.com/mmynk/shoeshelf/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// fieldPattern restricts queryable field names to plain identifiers,
// since they are spliced into a JSON path.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore implements storage.Store using SQLite.
// Documents are kept as JSON text and matched with json_extract.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; bulk deletes arrive concurrently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertDocument persists a new document to the database.
func (s *SQLiteStore) InsertDocument(ctx context.Context, ownerID string, doc *models.Document) error {
	// Generate IDs if not set
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt == 0 {
		doc.CreatedAt = time.Now().UnixNano()
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}

	body, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode document fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (id, collection, owner_id, fields, created_at) VALUES (?, ?, ?, ?, ?)",
		doc.ID, doc.Collection, ownerID, string(body), doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return nil
}

// GetDocument retrieves a document by reference along with its owner.
func (s *SQLiteStore) GetDocument(ctx context.Context, ref models.Ref) (*models.Document, string, error) {
	var (
		ownerID string
		body    string
	)
	doc := &models.Document{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, collection, owner_id, fields, created_at FROM documents WHERE collection = ? AND id = ?",
		ref.Collection, ref.ID,
	).Scan(&doc.ID, &doc.Collection, &ownerID, &body, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get document: %w", err)
	}

	if err := json.Unmarshal([]byte(body), &doc.Fields); err != nil {
		return nil, "", fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
	}

	return doc, ownerID, nil
}

// QueryDocuments retrieves an owner's documents matching field == value.
func (s *SQLiteStore) QueryDocuments(ctx context.Context, collection, ownerID, field string, value any) ([]models.Document, error) {
	query := "SELECT id, collection, fields, created_at FROM documents WHERE collection = ? AND owner_id = ?"
	args := []any{collection, ownerID}

	// The owner filter already covers userId.
	if field != "" && field != models.FieldUserID {
		if !fieldPattern.MatchString(field) {
			return nil, fmt.Errorf("%w: %q", storage.ErrInvalidField, field)
		}
		query += " AND json_extract(fields, ?) = ?"
		args = append(args, "$."+field, value)
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var (
			doc  models.Document
			body string
		)
		if err := rows.Scan(&doc.ID, &doc.Collection, &body, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes an owner's document by reference.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, ref models.Ref, ownerID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ? AND owner_id = ?",
		ref.Collection, ref.ID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
