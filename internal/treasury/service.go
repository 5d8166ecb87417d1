// Package treasury manages the communal pot: a keyless account derived from
// a fixed module tag, funded by signed donations and absorbed surpluses, and
// drained by privileged allocations. Every state-changing operation appends
// exactly one audit event carrying the pot balance it left behind; an
// operation whose event cannot be recorded does not report success.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"coffer/internal/ledger"
	"coffer/internal/treasury/metrics"
	"coffer/pkg/domain"
	dErrors "coffer/pkg/domain-errors"
	"coffer/pkg/platform/audit"
	"coffer/pkg/platform/middleware/metadata"
	"coffer/pkg/requestcontext"
)

// PotTag identifies the treasury module on the ledger. The pot account is
// derived from it and never changes across deployments.
var PotTag = domain.MustAccountTag("cofferv1")

// Operation labels used in metrics and span names.
const (
	opDonate   = "donate"
	opAllocate = "allocate"
	opAbsorb   = "absorb_imbalance"
	opPot      = "pot"
	opEvents   = "events"
)

// AuditLog records treasury events and serves the event listing.
// Satisfied by *audit.Publisher.
type AuditLog interface {
	Emit(ctx context.Context, event audit.Event) error
	List(ctx context.Context, query audit.Query) ([]audit.Event, error)
}

// Runner executes fn atomically with any store writes fn performs. The SQL
// runner in cmd/server opens a database transaction and injects it into the
// context so the ledger transfer and the audit append commit together.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PassthroughRunner runs fn directly on the caller's context. It serves
// backends whose operations are individually atomic (memory, Redis).
type PassthroughRunner struct{}

func (PassthroughRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Receipt reports a successful treasury mutation, including the pot balance
// the operation left behind. Donate fills Donor; Allocate fills Dest.
type Receipt struct {
	Donor      domain.AccountID
	Dest       domain.AccountID
	Amount     ledger.Amount
	PotBalance ledger.Amount
}

// Service orchestrates pot operations over a ledger and an audit log.
type Service struct {
	ledger  ledger.Ledger
	audit   AuditLog
	runner  Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	pot     domain.AccountID
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithRunner(r Runner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// NewService constructs a Service over the given ledger and audit log.
func NewService(l ledger.Ledger, auditLog AuditLog, opts ...Option) (*Service, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if auditLog == nil {
		return nil, fmt.Errorf("audit log is required")
	}

	s := &Service{
		ledger: l,
		audit:  auditLog,
		runner: PassthroughRunner{},
		pot:    domain.DeriveAccountID(PotTag),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("coffer/treasury")
	}
	return s, nil
}

// AccountID returns the pot's derived account. Pure: the same value on every
// call, before the account holds any balance.
func (s *Service) AccountID() domain.AccountID {
	return s.pot
}

// Pot returns the pot's free balance, zero when the account does not exist.
func (s *Service) Pot(ctx context.Context) (_ ledger.Amount, err error) {
	ctx, done := s.startOp(ctx, opPot)
	defer func() { done(err) }()

	balance, err := s.ledger.FreeBalance(ctx, s.pot)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pot balance")
	}
	s.metrics.SetPotBalance(uint64(balance))
	return balance, nil
}

// Donate moves amount from the signed caller into the pot. The donor may
// donate their entire balance and be reaped; a zero donation is a valid
// no-op that still produces an event.
func (s *Service) Donate(ctx context.Context, o domain.Origin, amount ledger.Amount) (_ Receipt, err error) {
	ctx, done := s.startOp(ctx, opDonate, attribute.Int64("treasury.amount", int64(amount)))
	defer func() { done(err) }()

	donor, err := domain.EnsureSigned(o)
	if err != nil {
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeForbidden, "can't make donation: bad origin")
	}

	var receipt Receipt
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Transfer(ctx, donor, s.pot, amount, ledger.AllowReap); err != nil {
			return translateLedgerErr(err, "can't make donation")
		}
		potBalance, err := s.ledger.FreeBalance(ctx, s.pot)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "can't make donation")
		}
		if err := s.emit(ctx, audit.Event{
			Action:     audit.ActionDonationReceived,
			Actor:      donor,
			Subject:    donor,
			Amount:     uint64(amount),
			PotBalance: uint64(potBalance),
		}); err != nil {
			return err
		}
		receipt = Receipt{Donor: donor, Amount: amount, PotBalance: potBalance}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	s.metrics.SetPotBalance(uint64(receipt.PotBalance))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "donation received",
			"donor", receipt.Donor,
			"amount", receipt.Amount,
			"pot_balance", receipt.PotBalance,
		)
	}
	return receipt, nil
}

// Allocate moves amount from the pot to dest on privileged authority. The
// pot may be drained below the minimum balance and reaped; later donations
// or absorbed surpluses recreate it.
func (s *Service) Allocate(ctx context.Context, o domain.Origin, dest domain.AccountID, amount ledger.Amount) (_ Receipt, err error) {
	ctx, done := s.startOp(ctx, opAllocate, attribute.Int64("treasury.amount", int64(amount)))
	defer func() { done(err) }()

	if err = domain.EnsurePrivileged(o); err != nil {
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeForbidden, "can't make allocation: bad origin")
	}
	if dest.IsZero() {
		return Receipt{}, dErrors.New(dErrors.CodeInvalidInput, "can't make allocation: destination account is required")
	}

	var receipt Receipt
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ledger.Transfer(ctx, s.pot, dest, amount, ledger.AllowReap); err != nil {
			return translateLedgerErr(err, "can't make allocation")
		}
		potBalance, err := s.ledger.FreeBalance(ctx, s.pot)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "can't make allocation")
		}
		if err := s.emit(ctx, audit.Event{
			Action:     audit.ActionFundsAllocated,
			Subject:    dest,
			Amount:     uint64(amount),
			PotBalance: uint64(potBalance),
		}); err != nil {
			return err
		}
		receipt = Receipt{Dest: dest, Amount: amount, PotBalance: potBalance}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	s.metrics.SetPotBalance(uint64(receipt.PotBalance))
	if s.logger != nil {
		s.logger.InfoContext(ctx, "funds allocated",
			"dest", receipt.Dest,
			"amount", receipt.Amount,
			"pot_balance", receipt.PotBalance,
		)
	}
	return receipt, nil
}

// AbsorbImbalance credits a surplus into the pot, creating the pot account
// if needed, and returns the resulting pot balance. It never fails for pot
// insufficiency. Zero surpluses are consumed without an event.
//
// In-process callers only (the sweeper, slash hooks); there is no transport
// surface for this operation.
func (s *Service) AbsorbImbalance(ctx context.Context, surplus *ledger.Surplus) (_ ledger.Amount, err error) {
	amount := surplus.Peek()
	ctx, done := s.startOp(ctx, opAbsorb, attribute.Int64("treasury.amount", int64(amount)))
	defer func() { done(err) }()

	var potBalance ledger.Amount
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		balance, err := s.ledger.ResolveCreating(ctx, s.pot, surplus)
		if err != nil {
			return translateLedgerErr(err, "can't absorb imbalance")
		}
		if amount > 0 {
			if err := s.emit(ctx, audit.Event{
				Action:     audit.ActionImbalanceAbsorbed,
				Amount:     uint64(amount),
				PotBalance: uint64(balance),
			}); err != nil {
				return err
			}
		}
		potBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.SetPotBalance(uint64(potBalance))
	if amount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "imbalance absorbed",
			"amount", amount,
			"pot_balance", potBalance,
		)
	}
	return potBalance, nil
}

// Events returns the audit trail, newest first. Privileged only.
func (s *Service) Events(ctx context.Context, o domain.Origin, query audit.Query) (_ []audit.Event, err error) {
	ctx, done := s.startOp(ctx, opEvents)
	defer func() { done(err) }()

	if err = domain.EnsurePrivileged(o); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeForbidden, "can't list treasury events: bad origin")
	}
	events, err := s.audit.List(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list treasury events")
	}
	return events, nil
}

// startOp opens a span for one treasury operation and returns a closer that
// records duration, outcome, and span status.
func (s *Service) startOp(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "treasury."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("treasury.outcome", outcome))
		span.End()
		s.metrics.ObserveOperation(op, outcome, time.Since(start))
	}
}

// emit stamps request correlation metadata and the request-scoped time onto
// the event before handing it to the audit log. The append failure, if any,
// propagates: a treasury mutation without its event must not succeed.
func (s *Service) emit(ctx context.Context, event audit.Event) error {
	event.CreatedAt = requestcontext.Now(ctx).UTC()
	if meta := requestMetadata(ctx); len(meta) > 0 {
		event.Metadata = meta
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "can't record treasury event")
	}
	return nil
}

func requestMetadata(ctx context.Context) map[string]string {
	meta := make(map[string]string, 4)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		meta[audit.MetaRequestID] = requestID
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		meta[audit.MetaClientIP] = ip
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		meta[audit.MetaUserAgent] = metadata.DescribeClient(ua)
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		meta[audit.MetaTraceID] = sc.TraceID().String()
	}
	return meta
}

// translateLedgerErr maps ledger sentinels to invalid-input domain errors
// and everything else to internal. The sentinel stays reachable through
// errors.Is for callers that branch on the balance fact.
func translateLedgerErr(err error, message string) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrBelowMinimum),
		errors.Is(err, ledger.ErrWouldReap),
		errors.Is(err, ledger.ErrOverflow):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, message)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}
