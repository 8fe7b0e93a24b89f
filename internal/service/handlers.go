package service

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/shoeshelf/internal/rpc"
)

// NewDocumentServiceHandler builds the HTTP handler for every DocumentService procedure.
// It returns the path prefix to mount it on.
func NewDocumentServiceHandler(svc *DocumentService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(rpc.InsertProcedure, connect.NewUnaryHandler(rpc.InsertProcedure, svc.Insert, opts...))
	mux.Handle(rpc.QueryProcedure, connect.NewUnaryHandler(rpc.QueryProcedure, svc.Query, opts...))
	mux.Handle(rpc.DeleteByIDProcedure, connect.NewUnaryHandler(rpc.DeleteByIDProcedure, svc.DeleteByID, opts...))
	mux.Handle(rpc.DeleteByRefProcedure, connect.NewUnaryHandler(rpc.DeleteByRefProcedure, svc.DeleteByRef, opts...))

	return "/" + rpc.DocumentServiceName + "/", mux
}

// NewIdentityServiceHandler builds the HTTP handler for IdentityService.
func NewIdentityServiceHandler(svc *IdentityService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(rpc.SignInAnonymouslyProcedure,
		connect.NewUnaryHandler(rpc.SignInAnonymouslyProcedure, svc.SignInAnonymously, opts...))
	mux.Handle(rpc.RefreshSessionProcedure,
		connect.NewUnaryHandler(rpc.RefreshSessionProcedure, svc.RefreshSession, opts...))

	return "/" + rpc.IdentityServiceName + "/", mux
}
