// Package inventory is the Sync Layer: it mirrors one user's shoe list and
// view history in memory and keeps them consistent with the remote document
// store.
//
// Every mutation writes remotely first and touches local state only after the
// store confirms, so a failed call never leaves the list half-updated.
// Operations that change the list run one at a time per Syncer.
package inventory

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mmynk/shoeshelf/internal/auth"
	"github.com/mmynk/shoeshelf/internal/enrichment"
	"github.com/mmynk/shoeshelf/internal/models"
)

// User-facing messages.
const (
	msgAuthFailed   = "Failed to authenticate. Please try again."
	msgSigningIn    = "Sign-in already in progress."
	msgNotSignedIn  = "Not signed in."
	msgExpired      = "Your session expired. Please sign in again."
	msgInvalidItem  = "Please enter a valid shoe name and price."
	msgDuplicate    = "This shoe is already in your list."
	msgEmptyList    = "Add at least one shoe."
	msgLoadItems    = "Failed to load shoes."
	msgLoadHistory  = "Failed to load past views."
	msgAdd          = "Failed to add shoe."
	msgDelete       = "Failed to delete shoe."
	msgClear        = "Failed to clear shoes."
	msgPartialClear = "Some shoes could not be removed. Reload to see what is left."
	msgDetails      = "Failed to fetch shoe details."

	// renewBefore is how long before expiry a session is renewed.
	renewBefore = 30 * time.Second

	// NoDetails is returned when the enrichment service has nothing to say.
	NoDetails = "No details found."
)

// CollectionStore is the remote document store.
type CollectionStore interface {
	Insert(ctx context.Context, collection string, fields map[string]any) (string, error)
	QueryByField(ctx context.Context, collection, field string, value any) ([]models.Document, error)
	DeleteByID(ctx context.Context, collection, id string) error
	DeleteByRef(ctx context.Context, ref models.Ref) error
}

// IdentityProvider issues anonymous sessions and renews them for the same
// user.
type IdentityProvider interface {
	SignInAnonymously(ctx context.Context) (models.Session, error)
	RefreshSession(ctx context.Context, token string) (models.Session, error)
}

// Enricher fetches details text for a list of items. A message reported by
// the service should come back as *enrichment.ServiceError.
type Enricher interface {
	Describe(ctx context.Context, items []models.Item, userID string) (string, error)
}

// State is the session lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	default:
		return "unauthenticated"
	}
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) { s.logger = logger }
}

// WithClock overrides the time source used to stamp new documents.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// Syncer owns the local copy of one session's items and view history.
type Syncer struct {
	store    CollectionStore
	identity IdentityProvider
	enricher Enricher
	logger   *slog.Logger
	now      func() time.Time

	// flight admits one item-list operation at a time.
	flight *semaphore.Weighted

	mu      sync.RWMutex
	state   State
	session models.Session
	items   []models.Item
	index   map[string]string // item name -> document ID
	history []models.ViewEvent
	banner  string
}

// New creates a Syncer. Nothing works until Initialize succeeds.
func New(store CollectionStore, identity IdentityProvider, enricher Enricher, opts ...Option) *Syncer {
	s := &Syncer{
		store:    store,
		identity: identity,
		enricher: enricher,
		logger:   slog.Default(),
		now:      time.Now,
		flight:   semaphore.NewWeighted(1),
		index:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize signs in anonymously. It is safe to call again once Ready; the
// existing session is returned. After a session ended, it first tries to
// renew it so the list survives; only if that fails is a new identity issued.
func (s *Syncer) Initialize(ctx context.Context) (models.Session, error) {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		session := s.session
		s.mu.Unlock()
		return session, nil
	case StateAuthenticating:
		s.mu.Unlock()
		return models.Session{}, s.fail(newError(KindAuthentication, msgSigningIn, nil))
	}
	s.state = StateAuthenticating
	previous := s.session
	s.mu.Unlock()

	if previous.Token != "" {
		session, err := s.identity.RefreshSession(ctx, previous.Token)
		if err == nil && session.UserID == previous.UserID {
			s.mu.Lock()
			s.state = StateReady
			s.session = session
			s.banner = ""
			s.mu.Unlock()

			s.logger.Info("Session renewed", "user_id", session.UserID)
			return session, nil
		}
		s.logger.Warn("Session renewal failed, signing in again", "user_id", previous.UserID, "error", err)
	}

	session, err := s.identity.SignInAnonymously(ctx)
	if err == nil && session.UserID == "" {
		err = errors.New("identity provider returned an empty user ID")
	}
	if err != nil {
		s.mu.Lock()
		s.state = StateUnauthenticated
		s.mu.Unlock()
		s.logger.Error("Anonymous sign-in failed", "error", err)
		return models.Session{}, s.fail(newError(KindAuthentication, msgAuthFailed, err))
	}

	s.mu.Lock()
	s.state = StateReady
	s.session = session
	s.items = nil
	s.index = make(map[string]string)
	s.history = nil
	s.banner = ""
	s.mu.Unlock()

	s.logger.Info("Signed in", "user_id", session.UserID)
	return session, nil
}

// Bootstrap signs in, then loads items and history. Both loads are attempted
// even if the first fails; their errors are joined.
func (s *Syncer) Bootstrap(ctx context.Context) error {
	if _, err := s.Initialize(ctx); err != nil {
		return err
	}
	return errors.Join(s.LoadItems(ctx), s.LoadHistory(ctx))
}

// LoadItems replaces the list and index with the store's current contents.
// Records whose price is not a number are skipped.
func (s *Syncer) LoadItems(ctx context.Context) error {
	session, err := s.currentSession(ctx)
	if err != nil {
		return s.fail(err)
	}
	if err := s.flight.Acquire(ctx, 1); err != nil {
		return s.fail(newError(KindLoad, msgLoadItems, err))
	}
	defer s.flight.Release(1)

	docs, err := s.store.QueryByField(s.authorize(ctx, session), models.CollectionItems, models.FieldUserID, session.UserID)
	if err != nil {
		s.logger.Error("LoadItems failed", "error", err)
		return s.remoteFailure(session, KindLoad, msgLoadItems, err)
	}

	items := make([]models.Item, 0, len(docs))
	index := make(map[string]string, len(docs))
	for _, doc := range docs {
		name := doc.String(models.FieldShoeName)
		price, ok := parsePrice(doc.Fields[models.FieldPrice])
		switch {
		case !ok:
			s.logger.Warn("Skipping shoe with invalid price",
				"document_id", doc.ID,
				"price", doc.Fields[models.FieldPrice],
			)
			continue
		case name == "":
			s.logger.Warn("Skipping shoe without a name", "document_id", doc.ID)
			continue
		}
		if _, dup := index[name]; dup {
			s.logger.Warn("Skipping duplicate shoe", "document_id", doc.ID, "name", name)
			continue
		}
		items = append(items, models.Item{Name: name, Price: price})
		index[name] = doc.ID
	}

	s.mu.Lock()
	s.items = items
	s.index = index
	s.mu.Unlock()
	s.succeed()

	s.logger.Info("Items loaded", "count", len(items), "skipped", len(docs)-len(items))
	return nil
}

// LoadHistory replaces the view history, newest first.
func (s *Syncer) LoadHistory(ctx context.Context) error {
	session, err := s.currentSession(ctx)
	if err != nil {
		return s.fail(err)
	}
	if err := s.refreshHistory(ctx, session); err != nil {
		s.logger.Error("LoadHistory failed", "error", err)
		return s.remoteFailure(session, KindLoad, msgLoadHistory, err)
	}
	s.succeed()
	return nil
}

func (s *Syncer) refreshHistory(ctx context.Context, session models.Session) error {
	docs, err := s.store.QueryByField(s.authorize(ctx, session), models.CollectionViews, models.FieldUserID, session.UserID)
	if err != nil {
		return err
	}

	views := make([]models.ViewEvent, len(docs))
	for i, doc := range docs {
		views[i] = viewFromDocument(doc)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})

	s.mu.Lock()
	s.history = views
	s.mu.Unlock()
	return nil
}

// AddItem validates and stores a new item, then appends it locally.
func (s *Syncer) AddItem(ctx context.Context, name string, price float64) (models.Item, error) {
	session, err := s.currentSession(ctx)
	if err != nil {
		return models.Item{}, s.fail(err)
	}

	name = strings.TrimSpace(name)
	if name == "" || !models.ValidPrice(price) {
		return models.Item{}, s.fail(newError(KindValidation, msgInvalidItem, nil))
	}

	if err := s.flight.Acquire(ctx, 1); err != nil {
		return models.Item{}, s.fail(newError(KindWrite, msgAdd, err))
	}
	defer s.flight.Release(1)

	s.mu.RLock()
	dup := containsName(s.items, name)
	s.mu.RUnlock()
	if dup {
		return models.Item{}, s.fail(newError(KindValidation, msgDuplicate, nil))
	}

	item := models.Item{Name: name, Price: price}
	id, err := s.store.Insert(s.authorize(ctx, session), models.CollectionItems, itemFields(session.UserID, item, s.now()))
	if err != nil {
		s.logger.Error("AddItem failed", "name", name, "error", err)
		return models.Item{}, s.remoteFailure(session, KindWrite, msgAdd, err)
	}

	s.mu.Lock()
	s.items = append(s.items, item)
	s.index[name] = id
	s.mu.Unlock()
	s.succeed()

	s.logger.Info("Item added", "name", name, "document_id", id)
	return item, nil
}

// DeleteItem removes the named item. A name that is not listed is a no-op.
func (s *Syncer) DeleteItem(ctx context.Context, name string) error {
	session, err := s.currentSession(ctx)
	if err != nil {
		return s.fail(err)
	}
	if err := s.flight.Acquire(ctx, 1); err != nil {
		return s.fail(newError(KindWrite, msgDelete, err))
	}
	defer s.flight.Release(1)

	s.mu.RLock()
	id, indexed := s.index[name]
	listed := containsName(s.items, name)
	s.mu.RUnlock()

	if !indexed {
		if listed {
			s.logger.Error("DeleteItem failed", "name", name, "error", ErrIndexOutOfSync)
			return s.fail(newError(KindWrite, msgDelete, ErrIndexOutOfSync))
		}
		return nil
	}

	if err := s.store.DeleteByID(s.authorize(ctx, session), models.CollectionItems, id); err != nil {
		s.logger.Error("DeleteItem failed", "name", name, "document_id", id, "error", err)
		return s.remoteFailure(session, KindWrite, msgDelete, err)
	}

	s.mu.Lock()
	s.items = slices.DeleteFunc(s.items, func(item models.Item) bool { return item.Name == name })
	delete(s.index, name)
	s.mu.Unlock()
	s.succeed()

	s.logger.Info("Item deleted", "name", name, "document_id", id)
	return nil
}

// ClearAll deletes every stored item of the session concurrently. The local
// list is emptied only if every delete succeeded; after a partial failure
// nothing local changes and the caller should LoadItems.
func (s *Syncer) ClearAll(ctx context.Context) error {
	session, err := s.currentSession(ctx)
	if err != nil {
		return s.fail(err)
	}
	if err := s.flight.Acquire(ctx, 1); err != nil {
		return s.fail(newError(KindWrite, msgClear, err))
	}
	defer s.flight.Release(1)

	authCtx := s.authorize(ctx, session)
	docs, err := s.store.QueryByField(authCtx, models.CollectionItems, models.FieldUserID, session.UserID)
	if err != nil {
		s.logger.Error("ClearAll failed", "error", err)
		return s.remoteFailure(session, KindWrite, msgClear, err)
	}

	// No shared context: one failed delete must not cancel the others.
	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	for _, doc := range docs {
		ref := models.Ref{Collection: models.CollectionItems, ID: doc.ID}
		g.Go(func() error {
			if err := s.store.DeleteByRef(authCtx, ref); err != nil {
				failed.Add(1)
				s.logger.Warn("Delete during clear failed", "document_id", ref.ID, "error", err)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("ClearAll partially failed",
			"failed", failed.Load(),
			"total", len(docs),
			"error", err,
		)
		return s.remoteFailure(session, KindWrite, msgPartialClear, err)
	}

	s.mu.Lock()
	s.items = nil
	s.index = make(map[string]string)
	s.mu.Unlock()
	s.succeed()

	s.logger.Info("Items cleared", "count", len(docs))
	return nil
}

// RequestEnrichment fetches details for items. Non-empty details are recorded
// as a view event and the history is reloaded; both steps are best-effort and
// only logged on failure.
func (s *Syncer) RequestEnrichment(ctx context.Context, items []models.Item) (string, error) {
	session, err := s.currentSession(ctx)
	if err != nil {
		return "", s.fail(err)
	}
	if len(items) == 0 {
		return "", s.fail(newError(KindValidation, msgEmptyList, nil))
	}

	details, err := s.enricher.Describe(ctx, items, session.UserID)
	if err != nil {
		s.logger.Error("RequestEnrichment failed", "error", err)
		var svcErr *enrichment.ServiceError
		if errors.As(err, &svcErr) && svcErr.Message != "" {
			return "", s.fail(newError(KindEnrichment, svcErr.Message, err))
		}
		return "", s.fail(newError(KindEnrichment, msgDetails, err))
	}
	s.succeed()

	if details == "" {
		return NoDetails, nil
	}

	view := models.ViewEvent{
		UserID:    session.UserID,
		ItemNames: models.JoinNames(items),
		Details:   details,
		CreatedAt: s.now(),
	}
	id, err := s.store.Insert(s.authorize(ctx, session), models.CollectionViews, viewFields(view))
	if err != nil {
		s.logger.Warn("Failed to record view", "error", err)
		s.expireIfRejected(session, err)
		return details, nil
	}
	s.logger.Info("View recorded", "document_id", id, "shoes", view.ItemNames)

	if err := s.refreshHistory(ctx, session); err != nil {
		s.logger.Warn("Failed to refresh history after view", "error", err)
		s.expireIfRejected(session, err)
	}
	return details, nil
}

// Items returns a copy of the current list.
func (s *Syncer) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// History returns a copy of the view history, newest first.
func (s *Syncer) History() []models.ViewEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// Session returns the signed-in session, if any.
func (s *Syncer) Session() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.state == StateReady
}

// State returns the lifecycle state.
func (s *Syncer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Banner returns the message of the most recent failure, or "" once a later
// operation succeeded.
func (s *Syncer) Banner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.banner
}

// currentSession returns the session, renewing it first when it is about to
// expire.
func (s *Syncer) currentSession(ctx context.Context) (models.Session, error) {
	s.mu.RLock()
	state, session := s.state, s.session
	s.mu.RUnlock()

	if state != StateReady {
		return models.Session{}, newError(KindAuthentication, msgNotSignedIn, nil)
	}
	if session.ExpiresAt.IsZero() || s.now().Add(renewBefore).Before(session.ExpiresAt) {
		return session, nil
	}
	return s.renew(ctx, session)
}

func (s *Syncer) renew(ctx context.Context, session models.Session) (models.Session, error) {
	renewed, err := s.identity.RefreshSession(ctx, session.Token)
	if err == nil && renewed.UserID != session.UserID {
		err = errors.New("renewed session belongs to another user")
	}
	if err != nil {
		s.logger.Error("Session renewal failed", "user_id", session.UserID, "error", err)
		s.expire(session)
		return models.Session{}, newError(KindAuthentication, msgExpired, err)
	}

	s.mu.Lock()
	if s.state == StateReady && s.session.Token == session.Token {
		s.session = renewed
	}
	s.mu.Unlock()

	s.logger.Info("Session renewed", "user_id", renewed.UserID)
	return renewed, nil
}

// expire ends session unless it was already replaced. The token is kept so
// Initialize can renew it.
func (s *Syncer) expire(session models.Session) {
	s.mu.Lock()
	if s.state == StateReady && s.session.Token == session.Token {
		s.state = StateUnauthenticated
	}
	s.mu.Unlock()
}

func (s *Syncer) expireIfRejected(session models.Session, err error) bool {
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		return false
	}
	s.logger.Warn("Session rejected by store", "user_id", session.UserID)
	s.expire(session)
	return true
}

// remoteFailure classifies a failed store call. A rejected token ends the
// session and is reported as an authentication error.
func (s *Syncer) remoteFailure(session models.Session, kind Kind, message string, err error) error {
	if s.expireIfRejected(session, err) {
		return s.fail(newError(KindAuthentication, msgExpired, err))
	}
	return s.fail(newError(kind, message, err))
}

func (s *Syncer) authorize(ctx context.Context, session models.Session) context.Context {
	return auth.WithToken(ctx, session.Token)
}

func (s *Syncer) fail(err error) error {
	message := err.Error()
	var e *Error
	if errors.As(err, &e) {
		message = e.Message
	}
	s.mu.Lock()
	s.banner = message
	s.mu.Unlock()
	return err
}

func (s *Syncer) succeed() {
	s.mu.Lock()
	s.banner = ""
	s.mu.Unlock()
}

func containsName(items []models.Item, name string) bool {
	return slices.ContainsFunc(items, func(item models.Item) bool { return item.Name == name })
}
