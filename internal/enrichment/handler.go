package enrichment

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	maxRequestBytes = 64 << 10
	anonymousKey    = "anonymous"

	// DefaultMaxClients bounds how many per-user buckets are kept at once.
	DefaultMaxClients = 10000
)

// client is one caller's token bucket.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Handler serves POST /shoes.
type Handler struct {
	describer Describer
	logger    *slog.Logger
	requests  *prometheus.CounterVec
	now       func() time.Time

	limit rate.Limit
	burst int
	// idle is how long a bucket takes to refill completely. An entry idle
	// that long is equivalent to a new one and may be dropped.
	idle       time.Duration
	maxClients int

	mu        sync.Mutex
	clients   map[string]*client
	nextSweep time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxClients caps the number of callers tracked at once. When the table
// is full and no entry is idle, new callers are rate limited.
func WithMaxClients(n int) HandlerOption {
	return func(h *Handler) { h.maxClients = n }
}

// NewHandler creates the endpoint. Each userId gets its own token bucket
// refilled at perMinute requests per minute.
func NewHandler(describer Describer, perMinute, burst int, reg prometheus.Registerer, logger *slog.Logger, opts ...HandlerOption) *Handler {
	interval := time.Minute / time.Duration(perMinute)
	h := &Handler{
		describer: describer,
		logger:    logger,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shoeshelf",
			Name:      "enrichment_requests_total",
			Help:      "Enrichment requests by result.",
		}, []string{"result"}),
		now:        time.Now,
		limit:      rate.Every(interval),
		burst:      burst,
		idle:       interval * time.Duration(burst),
		maxClients: DefaultMaxClients,
		clients:    make(map[string]*client),
	}
	for _, opt := range opts {
		opt(h)
	}
	reg.MustRegister(h.requests)
	return h
}

func (h *Handler) allow(userID string) bool {
	if userID == "" {
		userID = anonymousKey
	}
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[userID]
	if !ok {
		if len(h.clients) >= h.maxClients {
			h.evictIdle(now)
		}
		if len(h.clients) >= h.maxClients {
			h.logger.Warn("Enrichment client table full", "clients", len(h.clients))
			return false
		}
		c = &client{limiter: rate.NewLimiter(h.limit, h.burst)}
		h.clients[userID] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// evictIdle drops buckets that have refilled. It scans the table at most
// once per idle period. Callers hold h.mu.
func (h *Handler) evictIdle(now time.Time) {
	if now.Before(h.nextSweep) {
		return
	}
	oldest := now
	for id, c := range h.clients {
		if now.Sub(c.lastSeen) >= h.idle {
			delete(h.clients, id)
			continue
		}
		if c.lastSeen.Before(oldest) {
			oldest = c.lastSeen
		}
	}
	h.nextSweep = oldest.Add(h.idle)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.reply(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"}, "rejected")
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.reply(w, http.StatusBadRequest, Response{Error: "invalid request body"}, "rejected")
		return
	}
	if len(req.Shoes) == 0 {
		h.reply(w, http.StatusBadRequest, Response{Error: "no shoes provided"}, "rejected")
		return
	}

	if !h.allow(req.UserID) {
		h.logger.Warn("Enrichment rate limited", "user_id", req.UserID)
		h.reply(w, http.StatusTooManyRequests, Response{Error: "rate limited"}, "rate_limited")
		return
	}

	h.logger.Info("Enrichment request received", "user_id", req.UserID, "shoes_count", len(req.Shoes))

	details, err := h.describer.Describe(r.Context(), req.Shoes)
	if err != nil {
		h.logger.Error("Enrichment failed", "user_id", req.UserID, "error", err)
		h.reply(w, http.StatusBadGateway, Response{Error: "could not describe shoes"}, "error")
		return
	}

	h.reply(w, http.StatusOK, Response{Details: details}, "ok")
}

func (h *Handler) reply(w http.ResponseWriter, status int, body Response, result string) {
	h.requests.WithLabelValues(result).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to write enrichment response", "error", err)
	}
}
