package handler

import (
	"time"

	"coffer/internal/treasury"
	"coffer/pkg/platform/audit"
)

// AccountResponse is the HTTP response for GET /account.
type AccountResponse struct {
	Account string `json:"account"`
}

// PotResponse is the HTTP response for GET /pot.
type PotResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// DonationResponse is the HTTP response for POST /donations.
type DonationResponse struct {
	Donor      string `json:"donor"`
	Amount     uint64 `json:"amount"`
	PotBalance uint64 `json:"pot_balance"`
}

// AllocationResponse is the HTTP response for POST /allocations.
type AllocationResponse struct {
	Dest       string `json:"dest"`
	Amount     uint64 `json:"amount"`
	PotBalance uint64 `json:"pot_balance"`
}

// EventResponse is one audit event in GET /events responses.
type EventResponse struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	Actor      string            `json:"actor,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Amount     uint64            `json:"amount"`
	PotBalance uint64            `json:"pot_balance"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// EventsResponse is the HTTP response for GET /events.
type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

// FromDonation converts a donation receipt to an HTTP response.
func FromDonation(receipt treasury.Receipt) DonationResponse {
	return DonationResponse{
		Donor:      receipt.Donor.String(),
		Amount:     uint64(receipt.Amount),
		PotBalance: uint64(receipt.PotBalance),
	}
}

// FromAllocation converts an allocation receipt to an HTTP response.
func FromAllocation(receipt treasury.Receipt) AllocationResponse {
	return AllocationResponse{
		Dest:       receipt.Dest.String(),
		Amount:     uint64(receipt.Amount),
		PotBalance: uint64(receipt.PotBalance),
	}
}

// FromEvents converts audit events to the HTTP response. The events slice is
// always present in the body, even when empty.
func FromEvents(events []audit.Event) EventsResponse {
	out := EventsResponse{Events: make([]EventResponse, 0, len(events))}
	for _, event := range events {
		out.Events = append(out.Events, EventResponse{
			ID:         event.ID.String(),
			Action:     string(event.Action),
			Actor:      event.Actor.String(),
			Subject:    event.Subject.String(),
			Amount:     event.Amount,
			PotBalance: event.PotBalance,
			Metadata:   event.Metadata,
			CreatedAt:  event.CreatedAt,
		})
	}
	return out
}
