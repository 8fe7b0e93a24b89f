package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/shoeshelf/internal/middleware"
	"github.com/mmynk/shoeshelf/internal/models"
	"github.com/mmynk/shoeshelf/internal/rpc"
	"github.com/mmynk/shoeshelf/internal/storage"
)

var (
	errNotOwner       = errors.New("document belongs to another user")
	errScopeMismatch  = errors.New("userId must match the signed-in user")
	errNoCollection   = errors.New("collection required")
	errNoField        = errors.New("field required")
	errUnsupportedArg = errors.New("query value must be a string, number or boolean")
)

// DocumentService implements the hosted document store RPCs.
// Every call is scoped to the user ID placed in the context by middleware.RequireAuth.
type DocumentService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewDocumentService creates a new DocumentService with the given storage backend.
func NewDocumentService(store storage.Store, logger *slog.Logger) *DocumentService {
	return &DocumentService{store: store, logger: logger}
}

func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}
	return userID, nil
}

// Insert stores a new document owned by the caller.
func (s *DocumentService) Insert(ctx context.Context, req *connect.Request[rpc.InsertRequest]) (*connect.Response[rpc.InsertResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Insert request received", "collection", req.Msg.Collection, "user_id", userID)

	if req.Msg.Collection == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errNoCollection)
	}
	if owner, _ := req.Msg.Fields[models.FieldUserID].(string); owner != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, errScopeMismatch)
	}

	doc := &models.Document{
		Collection: req.Msg.Collection,
		Fields:     req.Msg.Fields,
	}
	if err := s.store.InsertDocument(ctx, userID, doc); err != nil {
		s.logger.Error("Insert failed", "collection", req.Msg.Collection, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Document inserted", "collection", doc.Collection, "document_id", doc.ID)

	return connect.NewResponse(&rpc.InsertResponse{ID: doc.ID}), nil
}

// Query returns the caller's documents whose field equals the given value.
func (s *DocumentService) Query(ctx context.Context, req *connect.Request[rpc.QueryRequest]) (*connect.Response[rpc.QueryResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Query request received",
		"collection", req.Msg.Collection,
		"field", req.Msg.Field,
		"user_id", userID,
	)

	switch {
	case req.Msg.Collection == "":
		return nil, connect.NewError(connect.CodeInvalidArgument, errNoCollection)
	case req.Msg.Field == "":
		return nil, connect.NewError(connect.CodeInvalidArgument, errNoField)
	}

	switch v := req.Msg.Value.(type) {
	case string:
		if req.Msg.Field == models.FieldUserID && v != userID {
			return nil, connect.NewError(connect.CodePermissionDenied, errScopeMismatch)
		}
	case float64, bool:
		if req.Msg.Field == models.FieldUserID {
			return nil, connect.NewError(connect.CodePermissionDenied, errScopeMismatch)
		}
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument, errUnsupportedArg)
	}

	docs, err := s.store.QueryDocuments(ctx, req.Msg.Collection, userID, req.Msg.Field, req.Msg.Value)
	if errors.Is(err, storage.ErrInvalidField) {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err != nil {
		s.logger.Error("Query failed", "collection", req.Msg.Collection, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Debug("Query successful", "collection", req.Msg.Collection, "count", len(docs))

	return connect.NewResponse(&rpc.QueryResponse{Documents: docs}), nil
}

// DeleteByID removes one of the caller's documents.
func (s *DocumentService) DeleteByID(ctx context.Context, req *connect.Request[rpc.DeleteByIDRequest]) (*connect.Response[rpc.DeleteResponse], error) {
	if err := s.delete(ctx, models.Ref{Collection: req.Msg.Collection, ID: req.Msg.ID}); err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.DeleteResponse{}), nil
}

// DeleteByRef removes the referenced document.
func (s *DocumentService) DeleteByRef(ctx context.Context, req *connect.Request[rpc.DeleteByRefRequest]) (*connect.Response[rpc.DeleteResponse], error) {
	if err := s.delete(ctx, req.Msg.Ref); err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.DeleteResponse{}), nil
}

func (s *DocumentService) delete(ctx context.Context, ref models.Ref) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("Delete request received", "collection", ref.Collection, "document_id", ref.ID)

	if ref.Collection == "" || ref.ID == "" {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("collection and id required"))
	}

	doc, owner, err := s.store.GetDocument(ctx, ref)
	if err != nil {
		s.logger.Error("Delete failed - could not load document", "document_id", ref.ID, "error", err)
		return connect.NewError(connect.CodeInternal, err)
	}
	if doc == nil {
		// Deleting a missing document is a no-op.
		return nil
	}
	if owner != userID {
		return connect.NewError(connect.CodePermissionDenied, errNotOwner)
	}

	if err := s.store.DeleteDocument(ctx, ref, userID); err != nil {
		s.logger.Error("Delete failed", "document_id", ref.ID, "error", err)
		return connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Document deleted", "collection", ref.Collection, "document_id", ref.ID)
	return nil
}
