// Package server assembles the shoeshelf HTTP surface: the document and
// identity RPC services, the enrichment endpoint, metrics and health.
package server

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/shoeshelf/internal/auth"
	"github.com/mmynk/shoeshelf/internal/config"
	"github.com/mmynk/shoeshelf/internal/enrichment"
	"github.com/mmynk/shoeshelf/internal/middleware"
	"github.com/mmynk/shoeshelf/internal/service"
	"github.com/mmynk/shoeshelf/internal/storage"
)

// Deps are the collaborators the handler is built from.
type Deps struct {
	Store     storage.Store
	JWT       *auth.JWTManager
	Describer enrichment.Describer
	Enrich    config.EnrichConfig
	Registry  *prometheus.Registry
	Logger    *slog.Logger
}

// New returns the root handler with request logging applied.
func New(d Deps) http.Handler {
	metrics := middleware.NewMetrics(d.Registry)
	common := connect.WithInterceptors(
		middleware.LoggingInterceptor(d.Logger),
		metrics.Interceptor(),
	)

	mux := http.NewServeMux()

	docPath, docHandler := service.NewDocumentServiceHandler(
		service.NewDocumentService(d.Store, d.Logger),
		common,
		connect.WithInterceptors(middleware.RequireAuth(d.JWT)),
	)
	mux.Handle(docPath, docHandler)

	idPath, idHandler := service.NewIdentityServiceHandler(
		service.NewIdentityService(auth.NewAnonymousAuthenticator(d.Store, d.JWT), d.Logger),
		common,
	)
	mux.Handle(idPath, idHandler)

	var enrichOpts []enrichment.HandlerOption
	if d.Enrich.MaxClients > 0 {
		enrichOpts = append(enrichOpts, enrichment.WithMaxClients(d.Enrich.MaxClients))
	}
	mux.Handle(enrichment.Path, enrichment.NewHandler(
		d.Describer, d.Enrich.RatePerMinute, d.Enrich.Burst, d.Registry, d.Logger, enrichOpts...,
	))
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return middleware.LogHTTP(d.Logger, mux)
}
