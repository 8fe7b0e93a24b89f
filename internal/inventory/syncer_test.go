package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/shoeshelf/internal/enrichment"
	"github.com/mmynk/shoeshelf/internal/models"
)

const testUser = "user-1"

type fixture struct {
	store    *memStore
	identity *stubIdentity
	enricher *stubEnricher
	syncer   *Syncer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		identity: &stubIdentity{session: models.Session{UserID: testUser, Token: "token-1"}},
		enricher: &stubEnricher{},
	}
	f.syncer = New(f.store, f.identity, f.enricher, WithLogger(quietLogger()))
	return f
}

// ready returns a fixture that has already signed in.
func ready(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	_, err := f.syncer.Initialize(context.Background())
	require.NoError(t, err)
	return f
}

func shoeFields(name string, price any) map[string]any {
	return map[string]any{
		models.FieldUserID:   testUser,
		models.FieldShoeName: name,
		models.FieldPrice:    price,
	}
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("success moves to ready", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, StateUnauthenticated, f.syncer.State())

		session, err := f.syncer.Initialize(ctx)
		require.NoError(t, err)
		assert.Equal(t, testUser, session.UserID)
		assert.Equal(t, StateReady, f.syncer.State())

		again, err := f.syncer.Initialize(ctx)
		require.NoError(t, err)
		assert.Equal(t, session, again)
		assert.Equal(t, 1, f.identity.calls, "ready syncer must not sign in twice")
	})

	t.Run("failure returns authentication error and stays signed out", func(t *testing.T) {
		f := newFixture(t)
		f.identity.err = errors.New("provider unreachable")

		_, err := f.syncer.Initialize(ctx)
		require.ErrorIs(t, err, ErrAuthentication)
		assert.Equal(t, KindAuthentication, KindOf(err))
		assert.Equal(t, StateUnauthenticated, f.syncer.State())
		assert.Equal(t, "Failed to authenticate. Please try again.", f.syncer.Banner())

		_, ok := f.syncer.Session()
		assert.False(t, ok)
	})

	t.Run("empty user ID is a failure", func(t *testing.T) {
		f := newFixture(t)
		f.identity.session = models.Session{}

		_, err := f.syncer.Initialize(ctx)
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("operations are disabled until signed in", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		assert.ErrorIs(t, err, ErrAuthentication)
		assert.ErrorIs(t, f.syncer.LoadItems(ctx), ErrAuthentication)
		assert.ErrorIs(t, f.syncer.LoadHistory(ctx), ErrAuthentication)
		assert.ErrorIs(t, f.syncer.DeleteItem(ctx, "Air Max"), ErrAuthentication)
		assert.ErrorIs(t, f.syncer.ClearAll(ctx), ErrAuthentication)
		_, err = f.syncer.RequestEnrichment(ctx, []models.Item{{Name: "Air Max", Price: 120}})
		assert.ErrorIs(t, err, ErrAuthentication)

		assert.Zero(t, f.store.insertCount())
	})
}

func TestBootstrap(t *testing.T) {
	f := newFixture(t)
	f.store.seed(models.CollectionItems, shoeFields("Samba", 99.0))
	f.store.seed(models.CollectionViews, map[string]any{
		models.FieldUserID:    testUser,
		models.FieldShoeName:  "Samba",
		models.FieldDetails:   "Classic.",
		models.FieldTimestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})

	require.NoError(t, f.syncer.Bootstrap(context.Background()))
	assert.Equal(t, []models.Item{{Name: "Samba", Price: 99}}, f.syncer.Items())
	require.Len(t, f.syncer.History(), 1)
	assert.Equal(t, "Classic.", f.syncer.History()[0].Details)
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip through LoadItems", func(t *testing.T) {
		f := ready(t)

		item, err := f.syncer.AddItem(ctx, "Air Max", 120.00)
		require.NoError(t, err)
		assert.Equal(t, models.Item{Name: "Air Max", Price: 120}, item)

		require.NoError(t, f.syncer.LoadItems(ctx))
		assert.Equal(t, []models.Item{{Name: "Air Max", Price: 120}}, f.syncer.Items())
	})

	t.Run("name is trimmed", func(t *testing.T) {
		f := ready(t)

		item, err := f.syncer.AddItem(ctx, "  Gel-Kayano \t", 150)
		require.NoError(t, err)
		assert.Equal(t, "Gel-Kayano", item.Name)
	})

	t.Run("duplicate name is rejected without a write", func(t *testing.T) {
		f := ready(t)
		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)

		for _, name := range []string{"Air Max", "  Air Max  "} {
			_, err := f.syncer.AddItem(ctx, name, 99)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, "This shoe is already in your list.", err.Error())
		}
		assert.Equal(t, 1, f.store.insertCount())
		assert.Len(t, f.syncer.Items(), 1)
	})

	t.Run("duplicate check is case-sensitive", func(t *testing.T) {
		f := ready(t)
		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)

		_, err = f.syncer.AddItem(ctx, "air max", 120)
		assert.NoError(t, err)
	})

	t.Run("invalid name or price", func(t *testing.T) {
		tests := []struct {
			name  string
			shoe  string
			price float64
		}{
			{name: "zero price", shoe: "Air Max", price: 0},
			{name: "negative price", shoe: "Air Max", price: -5},
			{name: "NaN price", shoe: "Air Max", price: math.NaN()},
			{name: "infinite price", shoe: "Air Max", price: math.Inf(1)},
			{name: "negative infinity", shoe: "Air Max", price: math.Inf(-1)},
			{name: "empty name", shoe: "", price: 10},
			{name: "blank name", shoe: "   ", price: 10},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := ready(t)

				_, err := f.syncer.AddItem(ctx, tt.shoe, tt.price)
				require.ErrorIs(t, err, ErrValidation)
				assert.Equal(t, "Please enter a valid shoe name and price.", err.Error())
				assert.Zero(t, f.store.insertCount())
			})
		}
	})

	t.Run("write failure leaves state unchanged", func(t *testing.T) {
		f := ready(t)
		f.store.insertErr[models.CollectionItems] = errUnavailable

		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.ErrorIs(t, err, ErrWrite)
		assert.ErrorIs(t, err, errUnavailable)
		assert.Empty(t, f.syncer.Items())
		assert.Empty(t, f.syncer.index)
	})

	t.Run("writes carry the session token", func(t *testing.T) {
		f := ready(t)
		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)

		assert.Equal(t, map[string]bool{"token-1": true}, f.store.tokens)
	})
}

func TestLoadItems(t *testing.T) {
	ctx := context.Background()

	t.Run("non-numeric price is skipped", func(t *testing.T) {
		f := ready(t)
		f.store.seed(models.CollectionItems, shoeFields("Air Max", 120.0))
		badID := f.store.seed(models.CollectionItems, shoeFields("Mystery", "abc"))
		f.store.seed(models.CollectionItems, shoeFields("Samba", "45.5"))

		require.NoError(t, f.syncer.LoadItems(ctx))
		assert.Equal(t, []models.Item{
			{Name: "Air Max", Price: 120},
			{Name: "Samba", Price: 45.5},
		}, f.syncer.Items())
		assert.NotContains(t, f.syncer.index, "Mystery")

		// Without an index entry the record cannot be deleted by name.
		require.NoError(t, f.syncer.DeleteItem(ctx, "Mystery"))
		assert.Equal(t, 3, f.store.count(models.CollectionItems))
		assert.NotEmpty(t, badID)
	})

	t.Run("replaces state wholesale", func(t *testing.T) {
		f := ready(t)
		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)

		// Another client removed everything.
		f.store.docs = nil
		f.store.seed(models.CollectionItems, shoeFields("Samba", 99.0))

		require.NoError(t, f.syncer.LoadItems(ctx))
		assert.Equal(t, []models.Item{{Name: "Samba", Price: 99}}, f.syncer.Items())
		assert.NotContains(t, f.syncer.index, "Air Max")
	})

	t.Run("other users' records are not loaded", func(t *testing.T) {
		f := ready(t)
		other := shoeFields("Stan Smith", 80.0)
		other[models.FieldUserID] = "user-2"
		f.store.seed(models.CollectionItems, other)

		require.NoError(t, f.syncer.LoadItems(ctx))
		assert.Empty(t, f.syncer.Items())
	})

	t.Run("failure keeps previous state", func(t *testing.T) {
		f := ready(t)
		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)

		f.store.queryErr = errUnavailable
		err = f.syncer.LoadItems(ctx)
		require.ErrorIs(t, err, ErrLoad)
		assert.Equal(t, "Failed to load shoes.", f.syncer.Banner())
		assert.Equal(t, []models.Item{{Name: "Air Max", Price: 120}}, f.syncer.Items())
		assert.Contains(t, f.syncer.index, "Air Max")
	})
}

func TestDeleteItem(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes remote record then local entry", func(t *testing.T) {
		f := ready(t)
		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)
		_, err = f.syncer.AddItem(ctx, "Samba", 99)
		require.NoError(t, err)

		require.NoError(t, f.syncer.DeleteItem(ctx, "Air Max"))
		assert.Equal(t, []models.Item{{Name: "Samba", Price: 99}}, f.syncer.Items())
		assert.NotContains(t, f.syncer.index, "Air Max")
		assert.Equal(t, 1, f.store.count(models.CollectionItems))
	})

	t.Run("unknown name is a no-op", func(t *testing.T) {
		f := ready(t)
		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)
		before := f.syncer.Items()

		require.NoError(t, f.syncer.DeleteItem(ctx, "Gel-Kayano"))
		assert.Equal(t, before, f.syncer.Items())
		assert.Len(t, f.syncer.index, 1)
		assert.Equal(t, 1, f.store.count(models.CollectionItems))
	})

	t.Run("remote failure leaves state unchanged", func(t *testing.T) {
		f := ready(t)
		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)
		f.store.failDelete[f.syncer.index["Air Max"]] = true

		err = f.syncer.DeleteItem(ctx, "Air Max")
		require.ErrorIs(t, err, ErrWrite)
		assert.Len(t, f.syncer.Items(), 1)
		assert.Contains(t, f.syncer.index, "Air Max")
	})

	t.Run("listed item without index entry needs a reload", func(t *testing.T) {
		f := ready(t)
		_, err := f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)
		delete(f.syncer.index, "Air Max")

		err = f.syncer.DeleteItem(ctx, "Air Max")
		require.ErrorIs(t, err, ErrWrite)
		assert.ErrorIs(t, err, ErrIndexOutOfSync)

		require.NoError(t, f.syncer.LoadItems(ctx))
		require.NoError(t, f.syncer.DeleteItem(ctx, "Air Max"))
		assert.Empty(t, f.syncer.Items())
	})
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()

	t.Run("empty list is a successful no-op", func(t *testing.T) {
		f := ready(t)

		require.NoError(t, f.syncer.ClearAll(ctx))
		assert.Empty(t, f.syncer.Items())
		assert.Empty(t, f.syncer.index)
	})

	t.Run("removes every stored record including unlisted ones", func(t *testing.T) {
		f := ready(t)
		for i := range 5 {
			_, err := f.syncer.AddItem(ctx, fmt.Sprintf("Shoe %d", i), float64(10+i))
			require.NoError(t, err)
		}
		f.store.seed(models.CollectionItems, shoeFields("Mystery", "abc"))

		require.NoError(t, f.syncer.ClearAll(ctx))
		assert.Empty(t, f.syncer.Items())
		assert.Empty(t, f.syncer.index)
		assert.Zero(t, f.store.count(models.CollectionItems))
	})

	t.Run("partial failure leaves local list untouched", func(t *testing.T) {
		f := ready(t)
		for _, name := range []string{"Air Max", "Samba", "Gel-Kayano"} {
			_, err := f.syncer.AddItem(ctx, name, 100)
			require.NoError(t, err)
		}
		f.store.failDelete[f.syncer.index["Samba"]] = true

		err := f.syncer.ClearAll(ctx)
		require.ErrorIs(t, err, ErrWrite)
		assert.Equal(t, "Some shoes could not be removed. Reload to see what is left.", err.Error())
		assert.Len(t, f.syncer.Items(), 3)
		assert.Len(t, f.syncer.index, 3)

		// The other deletes still ran.
		assert.Equal(t, 1, f.store.count(models.CollectionItems))

		require.NoError(t, f.syncer.LoadItems(ctx))
		assert.Equal(t, []models.Item{{Name: "Samba", Price: 100}}, f.syncer.Items())
	})

	t.Run("query failure is a write error", func(t *testing.T) {
		f := ready(t)
		f.store.queryErr = errUnavailable

		assert.ErrorIs(t, f.syncer.ClearAll(ctx), ErrWrite)
	})
}

func TestRequestEnrichment(t *testing.T) {
	ctx := context.Background()
	airMax := []models.Item{{Name: "Air Max", Price: 120}}

	t.Run("details are returned and one view is recorded", func(t *testing.T) {
		f := ready(t)
		f.enricher.details = "A running shoe."

		details, err := f.syncer.RequestEnrichment(ctx, airMax)
		require.NoError(t, err)
		assert.Equal(t, "A running shoe.", details)
		assert.Equal(t, testUser, f.enricher.userID)

		assert.Equal(t, 1, f.store.count(models.CollectionViews))
		history := f.syncer.History()
		require.Len(t, history, 1)
		assert.Equal(t, "Air Max", history[0].ItemNames)
		assert.Equal(t, "A running shoe.", history[0].Details)
	})

	t.Run("item names are comma joined", func(t *testing.T) {
		f := ready(t)
		f.enricher.details = "Two shoes."

		_, err := f.syncer.RequestEnrichment(ctx, []models.Item{
			{Name: "Air Max", Price: 120},
			{Name: "Samba", Price: 99},
		})
		require.NoError(t, err)
		require.Len(t, f.syncer.History(), 1)
		assert.Equal(t, "Air Max, Samba", f.syncer.History()[0].ItemNames)
	})

	t.Run("service error carries its message and records nothing", func(t *testing.T) {
		f := ready(t)
		f.enricher.err = &enrichment.ServiceError{StatusCode: 429, Message: "rate limited"}

		_, err := f.syncer.RequestEnrichment(ctx, airMax)
		require.ErrorIs(t, err, ErrEnrichment)
		assert.Equal(t, "rate limited", err.Error())
		assert.Zero(t, f.store.count(models.CollectionViews))
		assert.Equal(t, "rate limited", f.syncer.Banner())
	})

	t.Run("malformed response is a generic enrichment error", func(t *testing.T) {
		f := ready(t)
		f.enricher.err = fmt.Errorf("%w: status 500", enrichment.ErrMalformedResponse)

		_, err := f.syncer.RequestEnrichment(ctx, airMax)
		require.ErrorIs(t, err, ErrEnrichment)
		assert.Equal(t, "Failed to fetch shoe details.", err.Error())
		assert.ErrorIs(t, err, enrichment.ErrMalformedResponse)
	})

	t.Run("empty list is a validation error", func(t *testing.T) {
		f := ready(t)

		_, err := f.syncer.RequestEnrichment(ctx, nil)
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, "Add at least one shoe.", err.Error())
	})

	t.Run("empty details records nothing", func(t *testing.T) {
		f := ready(t)

		details, err := f.syncer.RequestEnrichment(ctx, airMax)
		require.NoError(t, err)
		assert.Equal(t, NoDetails, details)
		assert.Zero(t, f.store.count(models.CollectionViews))
	})

	t.Run("failed view write does not fail the request", func(t *testing.T) {
		f := ready(t)
		f.enricher.details = "A running shoe."
		f.store.insertErr[models.CollectionViews] = errUnavailable

		details, err := f.syncer.RequestEnrichment(ctx, airMax)
		require.NoError(t, err)
		assert.Equal(t, "A running shoe.", details)
		assert.Empty(t, f.syncer.History())
		assert.Empty(t, f.syncer.Banner())
	})
}

func TestLoadHistory(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	view := func(details string, at time.Time) map[string]any {
		return map[string]any{
			models.FieldUserID:    testUser,
			models.FieldShoeName:  "Air Max",
			models.FieldDetails:   details,
			models.FieldTimestamp: at.Format(time.RFC3339Nano),
		}
	}

	t.Run("newest first", func(t *testing.T) {
		f := ready(t)
		f.store.seed(models.CollectionViews, view("T2", base.Add(time.Hour)))
		f.store.seed(models.CollectionViews, view("T1", base))
		f.store.seed(models.CollectionViews, view("T3", base.Add(2*time.Hour)))

		require.NoError(t, f.syncer.LoadHistory(ctx))

		var got []string
		for _, v := range f.syncer.History() {
			got = append(got, v.Details)
		}
		assert.Equal(t, []string{"T3", "T2", "T1"}, got)
	})

	t.Run("ties keep query order", func(t *testing.T) {
		f := ready(t)
		f.store.seed(models.CollectionViews, view("first", base))
		f.store.seed(models.CollectionViews, view("second", base))
		f.store.seed(models.CollectionViews, view("older", base.Add(-time.Minute)))

		require.NoError(t, f.syncer.LoadHistory(ctx))

		var got []string
		for _, v := range f.syncer.History() {
			got = append(got, v.Details)
		}
		assert.Equal(t, []string{"first", "second", "older"}, got)
	})

	t.Run("failure keeps previous history", func(t *testing.T) {
		f := ready(t)
		f.store.seed(models.CollectionViews, view("kept", base))
		require.NoError(t, f.syncer.LoadHistory(ctx))

		f.store.queryErr = errUnavailable
		require.ErrorIs(t, f.syncer.LoadHistory(ctx), ErrLoad)
		require.Len(t, f.syncer.History(), 1)
		assert.Equal(t, "kept", f.syncer.History()[0].Details)
	})
}

func TestBanner(t *testing.T) {
	ctx := context.Background()
	f := ready(t)

	_, err := f.syncer.AddItem(ctx, "", 10)
	require.Error(t, err)
	assert.Equal(t, "Please enter a valid shoe name and price.", f.syncer.Banner())

	_, err = f.syncer.RequestEnrichment(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, "Add at least one shoe.", f.syncer.Banner(), "a new error replaces the old one")

	_, err = f.syncer.AddItem(ctx, "Air Max", 120)
	require.NoError(t, err)
	assert.Empty(t, f.syncer.Banner())
}

func TestConcurrentMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("distinct adds all land", func(t *testing.T) {
		f := ready(t)

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.syncer.AddItem(ctx, fmt.Sprintf("Shoe %02d", i), 50)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Len(t, f.syncer.Items(), 20)
		assert.Len(t, f.syncer.index, 20)
		assert.Equal(t, 20, f.store.count(models.CollectionItems))
	})

	t.Run("racing duplicates write once", func(t *testing.T) {
		f := ready(t)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.syncer.AddItem(ctx, "Air Max", 120); err == nil {
					mu.Lock()
					success++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, success)
		assert.Equal(t, 1, f.store.insertCount())
	})

	t.Run("cancelled waiter gives up", func(t *testing.T) {
		f := ready(t)
		require.NoError(t, f.syncer.flight.Acquire(ctx, 1))
		defer f.syncer.flight.Release(1)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := f.syncer.AddItem(cctx, "Air Max", 120)
		require.ErrorIs(t, err, ErrWrite)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, f.store.insertCount())
	})
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{in: 120.0, want: 120, ok: true},
		{in: "45.50", want: 45.5, ok: true},
		{in: " 7 ", want: 7, ok: true},
		{in: "abc", ok: false},
		{in: "NaN", ok: false},
		{in: "Inf", ok: false},
		{in: nil, ok: false},
		{in: true, ok: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.in), func(t *testing.T) {
			got, ok := parsePrice(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// expiring returns a signed-in fixture whose token lapses after an hour,
	// with a clock the test can move.
	expiring := func(t *testing.T) (*fixture, *time.Time) {
		t.Helper()
		now := start
		f := &fixture{
			store: newMemStore(),
			identity: &stubIdentity{
				session: models.Session{UserID: testUser, Token: "token-1", ExpiresAt: start.Add(time.Hour)},
				renewed: models.Session{UserID: testUser, Token: "token-2", ExpiresAt: start.Add(3 * time.Hour)},
			},
			enricher: &stubEnricher{},
		}
		f.syncer = New(f.store, f.identity, f.enricher,
			WithLogger(quietLogger()),
			WithClock(func() time.Time { return now }),
		)
		_, err := f.syncer.Initialize(ctx)
		require.NoError(t, err)
		_, err = f.syncer.AddItem(ctx, "Air Max", 120)
		require.NoError(t, err)
		return f, &now
	}

	t.Run("valid session is not renewed", func(t *testing.T) {
		f, _ := expiring(t)

		require.NoError(t, f.syncer.LoadItems(ctx))
		assert.Empty(t, f.identity.refreshed)
	})

	t.Run("expired session is renewed before the call", func(t *testing.T) {
		f, now := expiring(t)
		*now = start.Add(2 * time.Hour)

		_, err := f.syncer.AddItem(ctx, "Samba", 99)
		require.NoError(t, err)

		assert.Equal(t, []string{"token-1"}, f.identity.refreshed)
		assert.True(t, f.store.tokens["token-2"], "the call used the renewed token")
		session, ok := f.syncer.Session()
		require.True(t, ok)
		assert.Equal(t, "token-2", session.Token)
		assert.Equal(t, testUser, session.UserID)
	})

	t.Run("failed renewal ends the session until Initialize", func(t *testing.T) {
		f, now := expiring(t)
		f.identity.refreshErr = errUnavailable
		*now = start.Add(2 * time.Hour)

		_, err := f.syncer.AddItem(ctx, "Samba", 99)
		require.ErrorIs(t, err, ErrAuthentication)
		assert.Equal(t, "Your session expired. Please sign in again.", err.Error())
		assert.Equal(t, StateUnauthenticated, f.syncer.State())
		assert.Equal(t, "Your session expired. Please sign in again.", f.syncer.Banner())
		_, ok := f.syncer.Session()
		assert.False(t, ok)

		f.identity.refreshErr = nil
		session, err := f.syncer.Initialize(ctx)
		require.NoError(t, err)
		assert.Equal(t, "token-2", session.Token)
		assert.Equal(t, testUser, session.UserID)
		assert.Equal(t, 1, f.identity.calls, "renewal keeps the identity")
		assert.Equal(t, []models.Item{{Name: "Air Max", Price: 120}}, f.syncer.Items())
		assert.Empty(t, f.syncer.Banner())

		_, err = f.syncer.AddItem(ctx, "Samba", 99)
		assert.NoError(t, err)
	})

	t.Run("token rejected by the store ends the session", func(t *testing.T) {
		f, _ := expiring(t)
		f.store.revoked["token-1"] = true

		err := f.syncer.LoadItems(ctx)
		require.ErrorIs(t, err, ErrAuthentication)
		assert.NotErrorIs(t, err, ErrLoad)
		assert.Equal(t, StateUnauthenticated, f.syncer.State())
		assert.Equal(t, []models.Item{{Name: "Air Max", Price: 120}}, f.syncer.Items())

		_, err = f.syncer.AddItem(ctx, "Samba", 99)
		assert.ErrorIs(t, err, ErrAuthentication)
		assert.Equal(t, 1, f.store.insertCount(), "nothing is written while signed out")

		require.NoError(t, f.syncer.Bootstrap(ctx))
		assert.Equal(t, StateReady, f.syncer.State())
		assert.Equal(t, []models.Item{{Name: "Air Max", Price: 120}}, f.syncer.Items())
	})

	t.Run("clear with a rejected token ends the session", func(t *testing.T) {
		f, _ := expiring(t)
		f.store.revoked["token-1"] = true

		err := f.syncer.ClearAll(ctx)
		require.ErrorIs(t, err, ErrAuthentication)
		assert.Equal(t, StateUnauthenticated, f.syncer.State())
	})

	t.Run("unrenewable session falls back to a new identity", func(t *testing.T) {
		f, now := expiring(t)
		f.identity.refreshErr = errUnavailable
		*now = start.Add(2 * time.Hour)
		require.ErrorIs(t, f.syncer.LoadItems(ctx), ErrAuthentication)

		f.identity.session = models.Session{UserID: "user-2", Token: "token-3", ExpiresAt: start.Add(5 * time.Hour)}
		session, err := f.syncer.Initialize(ctx)
		require.NoError(t, err)
		assert.Equal(t, "user-2", session.UserID)
		assert.Equal(t, 2, f.identity.calls)
		assert.Empty(t, f.syncer.Items(), "a new identity starts with an empty list")
	})
}
