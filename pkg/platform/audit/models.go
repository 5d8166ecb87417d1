package audit

import (
	"time"

	"github.com/google/uuid"

	"coffer/pkg/domain"
)

// Action names the treasury operation an audit event records.
type Action string

const (
	ActionDonationReceived  Action = "treasury.donation_received"
	ActionFundsAllocated    Action = "treasury.funds_allocated"
	ActionImbalanceAbsorbed Action = "treasury.imbalance_absorbed"
	ActionPotBootstrapped   Action = "treasury.pot_bootstrapped"
)

// Metadata keys attached to events for request and trace correlation.
const (
	MetaRequestID = "request_id"
	MetaClientIP  = "client_ip"
	MetaUserAgent = "user_agent"
	MetaTraceID   = "trace_id"
)

// Event records one successful treasury operation. Events are written in the
// same transaction as the balance movement they describe, so the trail never
// shows an operation that did not happen.
type Event struct {
	ID         uuid.UUID
	Action     Action
	Actor      domain.AccountID // signed account behind the operation, empty for privileged origins
	Subject    domain.AccountID // account the funds moved to or from
	Amount     uint64
	PotBalance uint64 // pot balance after the operation
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Query filters List results. Zero fields match everything. Results come
// back newest first.
type Query struct {
	Actor  domain.AccountID
	Action Action
	Limit  int // 0 applies DefaultQueryLimit
}

// DefaultQueryLimit caps List results when the query does not set one.
const DefaultQueryLimit = 100
