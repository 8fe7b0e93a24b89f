// Package rpc holds the wire contract shared by the shoeshelf services and
// their clients: procedure paths, message types, and the JSON codec that
// lets Connect carry plain Go structs.
package rpc

import (
	"encoding/json"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/shoeshelf/internal/models"
)

const (
	DocumentServiceName = "shoeshelf.v1.DocumentService"
	IdentityServiceName = "shoeshelf.v1.IdentityService"
)

// Procedure paths.
const (
	InsertProcedure            = "/" + DocumentServiceName + "/Insert"
	QueryProcedure             = "/" + DocumentServiceName + "/Query"
	DeleteByIDProcedure        = "/" + DocumentServiceName + "/DeleteByID"
	DeleteByRefProcedure       = "/" + DocumentServiceName + "/DeleteByRef"
	SignInAnonymouslyProcedure = "/" + IdentityServiceName + "/SignInAnonymously"
	RefreshSessionProcedure    = "/" + IdentityServiceName + "/RefreshSession"
)

// Prefix matches every RPC path; the server uses it to route API traffic.
const Prefix = "/shoeshelf.v1."

type InsertRequest struct {
	Collection string         `json:"collection"`
	Fields     map[string]any `json:"fields"`
}

type InsertResponse struct {
	ID string `json:"id"`
}

type QueryRequest struct {
	Collection string `json:"collection"`
	Field      string `json:"field"`
	Value      any    `json:"value"`
}

type QueryResponse struct {
	Documents []models.Document `json:"documents"`
}

type DeleteByIDRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

type DeleteByRefRequest struct {
	Ref models.Ref `json:"ref"`
}

type DeleteResponse struct{}

type SignInAnonymouslyRequest struct{}

type SignInAnonymouslyResponse struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshSessionRequest carries the token to renew, which may have expired.
type RefreshSessionRequest struct {
	Token string `json:"token"`
}

type RefreshSessionResponse = SignInAnonymouslyResponse

// JSONCodec marshals messages with encoding/json. It replaces Connect's
// default "json" codec, which only accepts protobuf messages.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

func (JSONCodec) Unmarshal(data []byte, msg any) error { return json.Unmarshal(data, msg) }

// WithJSON is the option both handlers and clients must carry.
func WithJSON() connect.Option {
	return connect.WithCodec(JSONCodec{})
}
