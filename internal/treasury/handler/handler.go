// Package handler exposes the treasury over HTTP. Capability checks stay in
// the service; the handler only maps tokens to origins and errors to statuses.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"coffer/internal/ledger"
	"coffer/internal/treasury"
	"coffer/pkg/domain"
	dErrors "coffer/pkg/domain-errors"
	"coffer/pkg/platform/audit"
	"coffer/pkg/platform/httputil"
	"coffer/pkg/platform/middleware/auth"
	"coffer/pkg/requestcontext"
)

// Service defines the treasury operations the handler exposes.
type Service interface {
	AccountID() domain.AccountID
	Pot(ctx context.Context) (ledger.Amount, error)
	Donate(ctx context.Context, o domain.Origin, amount ledger.Amount) (treasury.Receipt, error)
	Allocate(ctx context.Context, o domain.Origin, dest domain.AccountID, amount ledger.Amount) (treasury.Receipt, error)
	Events(ctx context.Context, o domain.Origin, query audit.Query) ([]audit.Event, error)
}

// Handler wires treasury endpoints to the treasury service.
type Handler struct {
	treasury  Service
	logger    *slog.Logger
	validator auth.JWTValidator
}

// New constructs a treasury handler with its dependencies.
func New(treasury Service, validator auth.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		treasury:  treasury,
		logger:    logger,
		validator: validator,
	}
}

// Register mounts treasury endpoints on the router. The pot address and
// balance are public; everything that moves or reads who moved funds
// requires a token.
func (h *Handler) Register(r chi.Router) {
	r.Get("/account", h.HandleAccount)
	r.Get("/pot", h.HandlePot)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireOrigin(h.validator, h.logger))
		r.Post("/donations", h.HandleDonate)
		r.Post("/allocations", h.HandleAllocate)
		r.Get("/events", h.HandleEvents)
	})
}

// HandleAccount handles GET /account requests.
func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, AccountResponse{
		Account: h.treasury.AccountID().String(),
	})
}

// HandlePot handles GET /pot requests.
func (h *Handler) HandlePot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	balance, err := h.treasury.Pot(ctx)
	if err != nil {
		h.writeError(w, ctx, "failed to read pot balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PotResponse{
		Account: h.treasury.AccountID().String(),
		Balance: uint64(balance),
	})
}

// HandleDonate handles POST /donations requests.
func (h *Handler) HandleDonate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	origin := requestcontext.Origin(ctx)
	if origin.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[DonateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := h.treasury.Donate(ctx, origin, ledger.Amount(req.Amount))
	if err != nil {
		h.writeError(w, ctx, "donation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDonation(receipt))
}

// HandleAllocate handles POST /allocations requests.
func (h *Handler) HandleAllocate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	origin := requestcontext.Origin(ctx)
	if origin.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[AllocateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := h.treasury.Allocate(ctx, origin, req.ParsedDest(), ledger.Amount(req.Amount))
	if err != nil {
		h.writeError(w, ctx, "allocation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAllocation(receipt))
}

// HandleEvents handles GET /events requests.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	origin := requestcontext.Origin(ctx)
	if origin.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	query, err := parseEventsQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.treasury.Events(ctx, origin, query)
	if err != nil {
		h.writeError(w, ctx, "failed to list treasury events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvents(events))
}

// writeError logs the failure and renders the uniform error envelope.
// Client-caused failures log at warn so operational alerts stay meaningful.
func (h *Handler) writeError(w http.ResponseWriter, ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
