package handler

import (
	"net/http"
	"strconv"
	"strings"

	"coffer/pkg/domain"
	dErrors "coffer/pkg/domain-errors"
	"coffer/pkg/platform/audit"
)

// DonateRequest is the HTTP request body for POST /donations.
type DonateRequest struct {
	Amount uint64 `json:"amount"`
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
// A zero amount is allowed; the ledger treats it as a no-op donation.
func (r *DonateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// AllocateRequest is the HTTP request body for POST /allocations.
type AllocateRequest struct {
	Dest   string `json:"dest"`
	Amount uint64 `json:"amount"`

	// Parsed values (populated by Validate)
	parsedDest domain.AccountID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AllocateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Dest = strings.TrimSpace(r.Dest)
	if r.Dest == "" {
		return dErrors.New(dErrors.CodeValidation, "dest is required")
	}
	dest, err := domain.ParseAccountID(r.Dest)
	if err != nil {
		return err
	}
	r.parsedDest = dest

	return nil
}

// ParsedDest returns the validated destination account.
func (r *AllocateRequest) ParsedDest() domain.AccountID {
	return r.parsedDest
}

// parseEventsQuery builds an audit query from GET /events query parameters.
func parseEventsQuery(r *http.Request) (audit.Query, error) {
	var query audit.Query
	params := r.URL.Query()

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return audit.Query{}, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
		}
		query.Limit = limit
	}
	if raw := params.Get("actor"); raw != "" {
		actor, err := domain.ParseAccountID(raw)
		if err != nil {
			return audit.Query{}, err
		}
		query.Actor = actor
	}
	if raw := params.Get("action"); raw != "" {
		query.Action = audit.Action(raw)
	}
	return query, nil
}
