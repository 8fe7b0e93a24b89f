// Package remote provides Connect clients for the hosted document store and
// identity provider. The Sync Layer consumes them through its own interfaces.
package remote

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/shoeshelf/internal/middleware"
	"github.com/mmynk/shoeshelf/internal/models"
	"github.com/mmynk/shoeshelf/internal/rpc"
)

// DocumentClient talks to DocumentService. Calls are authorized with the
// token attached to the context by auth.WithToken.
type DocumentClient struct {
	insert      *connect.Client[rpc.InsertRequest, rpc.InsertResponse]
	query       *connect.Client[rpc.QueryRequest, rpc.QueryResponse]
	deleteByID  *connect.Client[rpc.DeleteByIDRequest, rpc.DeleteResponse]
	deleteByRef *connect.Client[rpc.DeleteByRefRequest, rpc.DeleteResponse]
}

// NewDocumentClient creates a client for the document store at baseURL.
func NewDocumentClient(httpClient connect.HTTPClient, baseURL string) *DocumentClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts := []connect.ClientOption{
		rpc.WithJSON(),
		connect.WithInterceptors(middleware.BearerToken()),
	}
	return &DocumentClient{
		insert:      connect.NewClient[rpc.InsertRequest, rpc.InsertResponse](httpClient, baseURL+rpc.InsertProcedure, opts...),
		query:       connect.NewClient[rpc.QueryRequest, rpc.QueryResponse](httpClient, baseURL+rpc.QueryProcedure, opts...),
		deleteByID:  connect.NewClient[rpc.DeleteByIDRequest, rpc.DeleteResponse](httpClient, baseURL+rpc.DeleteByIDProcedure, opts...),
		deleteByRef: connect.NewClient[rpc.DeleteByRefRequest, rpc.DeleteResponse](httpClient, baseURL+rpc.DeleteByRefProcedure, opts...),
	}
}

// Insert stores a document and returns its store-assigned ID.
func (c *DocumentClient) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	resp, err := c.insert.CallUnary(ctx, connect.NewRequest(&rpc.InsertRequest{
		Collection: collection,
		Fields:     fields,
	}))
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return resp.Msg.ID, nil
}

// QueryByField returns documents in collection whose field equals value.
func (c *DocumentClient) QueryByField(ctx context.Context, collection, field string, value any) ([]models.Document, error) {
	resp, err := c.query.CallUnary(ctx, connect.NewRequest(&rpc.QueryRequest{
		Collection: collection,
		Field:      field,
		Value:      value,
	}))
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", collection, field, err)
	}
	return resp.Msg.Documents, nil
}

// DeleteByID removes a document from collection.
func (c *DocumentClient) DeleteByID(ctx context.Context, collection, id string) error {
	_, err := c.deleteByID.CallUnary(ctx, connect.NewRequest(&rpc.DeleteByIDRequest{
		Collection: collection,
		ID:         id,
	}))
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// DeleteByRef removes the referenced document.
func (c *DocumentClient) DeleteByRef(ctx context.Context, ref models.Ref) error {
	_, err := c.deleteByRef.CallUnary(ctx, connect.NewRequest(&rpc.DeleteByRefRequest{Ref: ref}))
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", ref.Collection, ref.ID, err)
	}
	return nil
}

// IdentityClient talks to IdentityService.
type IdentityClient struct {
	signIn  *connect.Client[rpc.SignInAnonymouslyRequest, rpc.SignInAnonymouslyResponse]
	refresh *connect.Client[rpc.RefreshSessionRequest, rpc.RefreshSessionResponse]
}

// NewIdentityClient creates a client for the identity provider at baseURL.
func NewIdentityClient(httpClient connect.HTTPClient, baseURL string) *IdentityClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &IdentityClient{
		signIn: connect.NewClient[rpc.SignInAnonymouslyRequest, rpc.SignInAnonymouslyResponse](
			httpClient, baseURL+rpc.SignInAnonymouslyProcedure, rpc.WithJSON(),
		),
		refresh: connect.NewClient[rpc.RefreshSessionRequest, rpc.RefreshSessionResponse](
			httpClient, baseURL+rpc.RefreshSessionProcedure, rpc.WithJSON(),
		),
	}
}

// SignInAnonymously obtains a fresh anonymous session.
func (c *IdentityClient) SignInAnonymously(ctx context.Context) (models.Session, error) {
	resp, err := c.signIn.CallUnary(ctx, connect.NewRequest(&rpc.SignInAnonymouslyRequest{}))
	if err != nil {
		return models.Session{}, fmt.Errorf("anonymous sign-in: %w", err)
	}
	return models.Session{
		UserID:    resp.Msg.UserID,
		Token:     resp.Msg.Token,
		ExpiresAt: resp.Msg.ExpiresAt,
	}, nil
}

// RefreshSession renews token for the same user.
func (c *IdentityClient) RefreshSession(ctx context.Context, token string) (models.Session, error) {
	resp, err := c.refresh.CallUnary(ctx, connect.NewRequest(&rpc.RefreshSessionRequest{Token: token}))
	if err != nil {
		return models.Session{}, fmt.Errorf("session refresh: %w", err)
	}
	return models.Session{
		UserID:    resp.Msg.UserID,
		Token:     resp.Msg.Token,
		ExpiresAt: resp.Msg.ExpiresAt,
	}, nil
}
