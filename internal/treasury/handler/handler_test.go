package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffer/internal/ledger"
	"coffer/internal/treasury"
	"coffer/pkg/domain"
	"coffer/pkg/platform/audit"
	auditmem "coffer/pkg/platform/audit/store/memory"
	"coffer/pkg/platform/middleware/auth"
	"coffer/pkg/testutil"
)

const (
	aliceToken     = "alice-token"
	bobToken       = "bob-token"
	treasurerToken = "treasurer-token"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*auth.JWTClaims, error) {
	switch token {
	case aliceToken:
		return &auth.JWTClaims{Account: "alice", Role: auth.RoleMember}, nil
	case bobToken:
		return &auth.JWTClaims{Account: "bob", Role: auth.RoleMember}, nil
	case treasurerToken:
		return &auth.JWTClaims{Account: "treasury-ops", Role: auth.RoleTreasurer}, nil
	default:
		return nil, errors.New("unknown token")
	}
}

func newTreasuryRouter(t *testing.T) http.Handler {
	t.Helper()

	l := ledger.NewInMemoryLedger(1)
	publisher := audit.NewPublisher(auditmem.NewInMemoryStore())
	genesis := ledger.Genesis{Accounts: map[domain.AccountID]ledger.Amount{
		"alice": 13,
		"bob":   11,
	}}
	require.NoError(t, treasury.Bootstrap(context.Background(), l, publisher, genesis))

	service, err := treasury.NewService(l, publisher)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(service, stubValidator{}, logger)

	r := chi.NewRouter()
	r.Route("/v1/treasury", h.Register)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestAccountEndpointIsPublic(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/treasury/account", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[AccountResponse](t, rec)
	assert.Equal(t, string(domain.DeriveAccountID(treasury.PotTag)), resp.Account)
}

func TestPotEndpointIsPublic(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/treasury/pot", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[PotResponse](t, rec)
	assert.Equal(t, uint64(1), resp.Balance, "bootstrap funds the pot at the minimum balance")
}

func TestDonate(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/treasury/donations", aliceToken, DonateRequest{Amount: 10})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[DonationResponse](t, rec)
	assert.Equal(t, "alice", resp.Donor)
	assert.Equal(t, uint64(10), resp.Amount)
	assert.Equal(t, uint64(11), resp.PotBalance)

	pot := doJSON(t, router, http.MethodGet, "/v1/treasury/pot", "", nil)
	assert.Equal(t, uint64(11), decodeBody[PotResponse](t, pot).Balance)
}

func TestDonate_RequiresToken(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/treasury/donations", "", DonateRequest{Amount: 10})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDonate_TreasurerIsForbidden(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/treasury/donations", treasurerToken, DonateRequest{Amount: 10})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestDonate_InsufficientFunds(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/treasury/donations", aliceToken, DonateRequest{Amount: 100})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_input")
	assert.Contains(t, rec.Body.String(), "can't make donation")
}

func TestDonate_MalformedBody(t *testing.T) {
	router := newTreasuryRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/treasury/donations", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_request")
}

func TestAllocate(t *testing.T) {
	router := newTreasuryRouter(t)

	donate := doJSON(t, router, http.MethodPost, "/v1/treasury/donations", aliceToken, DonateRequest{Amount: 10})
	require.Equal(t, http.StatusOK, donate.Code)

	rec := doJSON(t, router, http.MethodPost, "/v1/treasury/allocations", treasurerToken,
		AllocateRequest{Dest: "bob", Amount: 5})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[AllocationResponse](t, rec)
	assert.Equal(t, "bob", resp.Dest)
	assert.Equal(t, uint64(5), resp.Amount)
	assert.Equal(t, uint64(6), resp.PotBalance)
}

func TestAllocate_MemberIsForbidden(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/treasury/allocations", aliceToken,
		AllocateRequest{Dest: "bob", Amount: 1})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAllocate_MissingDest(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/treasury/allocations", treasurerToken,
		AllocateRequest{Amount: 5})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "dest is required")
}

func TestEvents(t *testing.T) {
	router := newTreasuryRouter(t)

	donate := doJSON(t, router, http.MethodPost, "/v1/treasury/donations", aliceToken, DonateRequest{Amount: 10})
	require.Equal(t, http.StatusOK, donate.Code)

	rec := doJSON(t, router, http.MethodGet, "/v1/treasury/events", treasurerToken, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[EventsResponse](t, rec)
	// Newest first: the donation, then the bootstrap event.
	require.Len(t, resp.Events, 2)
	assert.Equal(t, string(audit.ActionDonationReceived), resp.Events[0].Action)
	assert.Equal(t, "alice", resp.Events[0].Actor)
	assert.Equal(t, uint64(11), resp.Events[0].PotBalance)
	assert.Equal(t, string(audit.ActionPotBootstrapped), resp.Events[1].Action)
}

func TestEvents_FiltersAndLimits(t *testing.T) {
	router := newTreasuryRouter(t)

	for _, amount := range []uint64{1, 2, 3} {
		rec := doJSON(t, router, http.MethodPost, "/v1/treasury/donations", aliceToken, DonateRequest{Amount: amount})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/v1/treasury/events?actor=alice&limit=2", treasurerToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[EventsResponse](t, rec)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, uint64(3), resp.Events[0].Amount)
	assert.Equal(t, uint64(2), resp.Events[1].Amount)
}

func TestEvents_MemberIsForbidden(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/treasury/events", aliceToken, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEvents_InvalidLimit(t *testing.T) {
	router := newTreasuryRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/treasury/events?limit=lots", treasurerToken, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit must be a positive integer")
}

// The handlers read the caller's origin from the request context, not from
// the Authorization header, so they behave the same no matter which
// middleware stamped it.
func TestHandlersReadOriginFromContext(t *testing.T) {
	l := ledger.NewInMemoryLedger(1)
	publisher := audit.NewPublisher(auditmem.NewInMemoryStore())
	genesis := ledger.Genesis{Accounts: map[domain.AccountID]ledger.Amount{"alice": 13}}
	require.NoError(t, treasury.Bootstrap(context.Background(), l, publisher, genesis))
	service, err := treasury.NewService(l, publisher)
	require.NoError(t, err)
	h := New(service, stubValidator{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("signed origin reaches the service", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/treasury/donations", DonateRequest{Amount: 4})
		req = testutil.WithSignedOrigin(req, "alice")
		rec := httptest.NewRecorder()

		h.HandleDonate(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[DonationResponse](t, rec)
		assert.Equal(t, uint64(4), resp.Amount)
	})

	t.Run("privileged origin reaches the service", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/v1/treasury/events")
		req = testutil.WithPrivilegedOrigin(req)
		rec := httptest.NewRecorder()

		h.HandleEvents(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing origin is refused before the service runs", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/treasury/donations", DonateRequest{Amount: 4})
		rec := httptest.NewRecorder()

		h.HandleDonate(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
