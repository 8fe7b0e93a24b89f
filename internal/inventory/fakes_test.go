package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"

	"connectrpc.com/connect"

	"github.com/mmynk/shoeshelf/internal/auth"
	"github.com/mmynk/shoeshelf/internal/models"
)

var errUnavailable = errors.New("store unavailable")

// memStore is an in-memory CollectionStore with failure injection.
type memStore struct {
	mu         sync.Mutex
	seq        int
	docs       []models.Document
	inserts    int
	insertErr  map[string]error // by collection
	queryErr   error
	failDelete map[string]bool // by document ID
	tokens     map[string]bool
	revoked    map[string]bool // tokens answered with Unauthenticated
}

func newMemStore() *memStore {
	return &memStore{
		insertErr:  map[string]error{},
		failDelete: map[string]bool{},
		tokens:     map[string]bool{},
		revoked:    map[string]bool{},
	}
}

// seen records the caller's token and rejects revoked ones.
func (m *memStore) seen(ctx context.Context) error {
	token := auth.TokenFrom(ctx)
	m.tokens[token] = true
	if m.revoked[token] {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}
	return nil
}

func (m *memStore) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.seen(ctx); err != nil {
		return "", err
	}
	if err := m.insertErr[collection]; err != nil {
		return "", err
	}
	m.inserts++
	return m.add(collection, fields), nil
}

// add stores a document without counting it as a client insert.
func (m *memStore) add(collection string, fields map[string]any) string {
	m.seq++
	id := fmt.Sprintf("doc-%d", m.seq)
	m.docs = append(m.docs, models.Document{ID: id, Collection: collection, Fields: maps.Clone(fields)})
	return id
}

func (m *memStore) seed(collection string, fields map[string]any) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(collection, fields)
}

func (m *memStore) QueryByField(ctx context.Context, collection, field string, value any) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.seen(ctx); err != nil {
		return nil, err
	}
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []models.Document
	for _, doc := range m.docs {
		if doc.Collection == collection && doc.Fields[field] == value {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memStore) DeleteByID(ctx context.Context, collection, id string) error {
	return m.DeleteByRef(ctx, models.Ref{Collection: collection, ID: id})
}

func (m *memStore) DeleteByRef(ctx context.Context, ref models.Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.seen(ctx); err != nil {
		return err
	}
	if m.failDelete[ref.ID] {
		return errUnavailable
	}
	for i, doc := range m.docs {
		if doc.Collection == ref.Collection && doc.ID == ref.ID {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, doc := range m.docs {
		if doc.Collection == collection {
			n++
		}
	}
	return n
}

func (m *memStore) insertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

type stubIdentity struct {
	session models.Session
	err     error
	calls   int

	// renewed is returned by RefreshSession unless refreshErr is set.
	renewed    models.Session
	refreshErr error
	refreshed  []string
}

func (s *stubIdentity) SignInAnonymously(context.Context) (models.Session, error) {
	s.calls++
	return s.session, s.err
}

func (s *stubIdentity) RefreshSession(_ context.Context, token string) (models.Session, error) {
	s.refreshed = append(s.refreshed, token)
	if s.refreshErr != nil {
		return models.Session{}, s.refreshErr
	}
	return s.renewed, nil
}

type stubEnricher struct {
	details string
	err     error
	userID  string
}

func (s *stubEnricher) Describe(_ context.Context, _ []models.Item, userID string) (string, error) {
	s.userID = userID
	return s.details, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
