// Package reconcile runs the payment-confirmation control loop: it
// walks unconfirmed payments, has each pending claim checked by the
// remote verifier and applies the verdict to payment and claim state.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	claimdomain "github.com/smallbiznis/chainpay/internal/claim/domain"
	"github.com/smallbiznis/chainpay/internal/clock"
	eventdomain "github.com/smallbiznis/chainpay/internal/event/domain"
	"github.com/smallbiznis/chainpay/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/chainpay/internal/payment/domain"
	"github.com/smallbiznis/chainpay/internal/verifier"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Events   eventdomain.Repository
	Payments paymentdomain.Repository
	Claims   claimdomain.Repository
	Builder  *verifier.Builder
	Verifier verifier.Verifier
	Clock    clock.Clock
	Logger   *zap.Logger
	Metrics  *metrics.ReconcileMetrics `optional:"true"`
}

type Engine struct {
	db       *gorm.DB
	events   eventdomain.Repository
	payments paymentdomain.Repository
	claims   claimdomain.Repository
	builder  *verifier.Builder
	verifier verifier.Verifier
	clock    clock.Clock
	metrics  *metrics.ReconcileMetrics
	logger   *zap.Logger
}

func New(p Params) *Engine {
	return &Engine{
		db:       p.DB,
		events:   p.Events,
		payments: p.Payments,
		claims:   p.Claims,
		builder:  p.Builder,
		verifier: p.Verifier,
		clock:    p.Clock,
		metrics:  p.Metrics,
		logger:   p.Logger.Named("reconcile.engine"),
	}
}

// RunOptions control one reconciliation run.
type RunOptions struct {
	// DryRun computes every verdict but replaces all state mutations,
	// confirmations and invalidations alike, with log lines.
	DryRun bool

	// EventSlug restricts the run to a single event when set.
	EventSlug string

	// Verbose raises per-claim logging from debug to info.
	Verbose bool
}

// Summary reports what one run did. Under dry run the counts describe
// what a live run would have done.
type Summary struct {
	EventsProcessed   int
	PaymentsSeen      int
	PaymentsConfirmed int
	ClaimsVerified    int
	ClaimsRejected    int
	ClaimsDeferred    int
	ClaimsUnavailable int
	ClaimsSkipped     int
	Errors            int
}

// Run executes one reconciliation pass. It returns an error only for
// infrastructure failures that prevent the run from proceeding at all;
// per-payment and per-claim failures are logged, counted and skipped so
// one bad record never aborts the batch.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	start := e.clock.Now()
	var summary Summary

	events, err := e.targetEvents(ctx, opts.EventSlug)
	if err != nil {
		e.metrics.ObserveRunDuration("failed", e.clock.Now().Sub(start))
		return summary, fmt.Errorf("enumerate events: %w", err)
	}

	logOutcome := e.logger.Debug
	if opts.Verbose {
		logOutcome = e.logger.Info
	}

	for _, event := range events {
		summary.EventsProcessed++
		payments, err := e.payments.FindByStates(ctx, e.db, event.ID, paymentdomain.UnconfirmedStates())
		if err != nil {
			e.logger.Error("listing payments failed, skipping event",
				zap.String("event_slug", event.Slug),
				zap.Error(err),
			)
			summary.Errors++
			continue
		}
		summary.PaymentsSeen += len(payments)

		for i := range payments {
			if err := ctx.Err(); err != nil {
				e.metrics.ObserveRunDuration("failed", e.clock.Now().Sub(start))
				return summary, err
			}
			e.processPayment(ctx, &payments[i], opts, logOutcome, &summary)
		}
	}

	e.metrics.SetPendingBacklog(summary.PaymentsSeen - summary.PaymentsConfirmed)
	e.metrics.ObserveRunDuration("success", e.clock.Now().Sub(start))
	e.logger.Info("reconciliation run complete",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("events", summary.EventsProcessed),
		zap.Int("payments_seen", summary.PaymentsSeen),
		zap.Int("payments_confirmed", summary.PaymentsConfirmed),
		zap.Int("claims_verified", summary.ClaimsVerified),
		zap.Int("claims_rejected", summary.ClaimsRejected),
		zap.Int("claims_deferred", summary.ClaimsDeferred),
		zap.Int("claims_unavailable", summary.ClaimsUnavailable),
		zap.Int("claims_skipped", summary.ClaimsSkipped),
		zap.Int("errors", summary.Errors),
	)
	return summary, nil
}

func (e *Engine) targetEvents(ctx context.Context, slug string) ([]eventdomain.Event, error) {
	if slug == "" {
		return e.events.List(ctx, e.db)
	}
	event, err := e.events.FindBySlug(ctx, e.db, slug)
	if err != nil {
		return nil, err
	}
	return []eventdomain.Event{*event}, nil
}

func (e *Engine) processPayment(
	ctx context.Context,
	payment *paymentdomain.Payment,
	opts RunOptions,
	logOutcome func(string, ...zap.Field),
	summary *Summary,
) {
	claims, err := e.claims.ListByPayment(ctx, e.db, payment.ID)
	if err != nil {
		e.logger.Error("listing claims failed, skipping payment",
			zap.String("payment", payment.FullID),
			zap.Error(err),
		)
		summary.Errors++
		return
	}

	confirmedThisRun := false
	for i := range claims {
		claim := &claims[i]
		fields := []zap.Field{
			zap.String("payment", payment.FullID),
			zap.Int64("claim_id", int64(claim.ID)),
		}

		request, err := e.builder.Build(claim)
		if err != nil {
			// No verdict this run; the claim stays pending and is
			// retried next run.
			e.logger.Warn("building verification request failed", append(fields, zap.Error(err))...)
			e.metrics.IncClaimProcessed("error")
			summary.Errors++
			continue
		}

		outcome := e.verifier.Verify(ctx, request)

		switch outcome.Status {
		case verifier.StatusVerified:
			e.applyVerified(ctx, payment, claim, outcome, opts, &confirmedThisRun, logOutcome, fields, summary)
		case verifier.StatusRejected:
			e.applyRejected(ctx, claim, outcome, opts, logOutcome, fields, summary)
		case verifier.StatusUnavailable:
			logOutcome("verifier unavailable, claim stays pending", append(fields, zap.String("cause", outcome.Explanation))...)
			e.metrics.IncClaimProcessed("unavailable")
			summary.ClaimsUnavailable++
		default:
			e.logger.Warn("unknown verification outcome, claim stays pending", append(fields, zap.String("status", string(outcome.Status)))...)
			e.metrics.IncClaimProcessed("error")
			summary.Errors++
		}
	}
}

func (e *Engine) applyVerified(
	ctx context.Context,
	payment *paymentdomain.Payment,
	claim *claimdomain.SignedClaim,
	outcome verifier.Outcome,
	opts RunOptions,
	confirmedThisRun *bool,
	logOutcome func(string, ...zap.Field),
	fields []zap.Field,
	summary *Summary,
) {
	switch {
	case claim.IsConfirmed:
		logOutcome("claim already confirmed", fields...)
		e.metrics.IncClaimProcessed("skipped")
		summary.ClaimsSkipped++
		return
	case claim.Invalid:
		// A verified verdict on an invalidated claim can happen when a
		// low-gas transaction gets mined after the claim was ruled out.
		// Invalidity is terminal for confirmation; the customer must
		// submit a fresh claim.
		e.logger.Warn("claim verified but previously invalidated, not confirming", fields...)
		e.metrics.IncClaimProcessed("skipped")
		summary.ClaimsSkipped++
		return
	case *confirmedThisRun:
		logOutcome("payment already confirmed this run, later claim not applied", fields...)
		e.metrics.IncClaimProcessed("skipped")
		summary.ClaimsSkipped++
		return
	}

	if opts.DryRun {
		e.logger.Info("dry run: would confirm payment", append(fields, zap.String("explanation", outcome.Explanation))...)
		*confirmedThisRun = true
		summary.ClaimsVerified++
		summary.PaymentsConfirmed++
		return
	}

	now := e.clock.Now()
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.claims.MarkConfirmed(ctx, tx, claim.ID, outcome.Explanation); err != nil {
			return err
		}
		transitioned, err := e.payments.Confirm(ctx, tx, payment.ID, now)
		if err != nil {
			return err
		}
		if !transitioned {
			e.logger.Warn("payment was no longer in an unconfirmed state", fields...)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, claimdomain.ErrConstraintViolation) {
			// The store refused the confirmation. Either a second claim
			// raced past the skip logic or a transaction hash already
			// confirmed another payment; both mean data needs a human.
			e.logger.Error("claim store rejected confirmation, data integrity violation", append(fields, zap.Error(err))...)
			e.metrics.IncConstraintViolation()
		} else {
			e.logger.Error("confirming payment failed", append(fields, zap.Error(err))...)
		}
		e.metrics.IncClaimProcessed("error")
		summary.Errors++
		return
	}

	logOutcome("payment confirmed", append(fields, zap.String("explanation", outcome.Explanation))...)
	e.metrics.IncClaimProcessed("confirmed")
	e.metrics.IncPaymentConfirmed()
	*confirmedThisRun = true
	summary.ClaimsVerified++
	summary.PaymentsConfirmed++
}

func (e *Engine) applyRejected(
	ctx context.Context,
	claim *claimdomain.SignedClaim,
	outcome verifier.Outcome,
	opts RunOptions,
	logOutcome func(string, ...zap.Field),
	fields []zap.Field,
	summary *Summary,
) {
	if !outcome.Permanent {
		// Rejected but retryable, e.g. the transaction is not mined
		// yet. The claim stays pending and is re-checked next run;
		// invalidating it here would strand a payment that is still
		// in flight.
		if opts.DryRun {
			e.logger.Info("dry run: claim would stay pending after transient rejection", append(fields, zap.String("explanation", outcome.Explanation))...)
		} else {
			logOutcome("claim rejected transiently, stays pending", append(fields, zap.String("explanation", outcome.Explanation))...)
		}
		e.metrics.IncClaimProcessed("deferred")
		summary.ClaimsDeferred++
		return
	}

	if opts.DryRun {
		// Invalidation is a real mutation too: it removes the claim
		// from future confirmation, so dry run only reports it.
		e.logger.Info("dry run: would invalidate claim", append(fields, zap.String("explanation", outcome.Explanation))...)
		summary.ClaimsRejected++
		return
	}

	if err := e.claims.MarkInvalid(ctx, e.db, claim.ID, outcome.Explanation); err != nil {
		e.logger.Error("invalidating claim failed", append(fields, zap.Error(err))...)
		e.metrics.IncClaimProcessed("error")
		summary.Errors++
		return
	}
	logOutcome("claim invalidated", append(fields, zap.String("explanation", outcome.Explanation))...)
	e.metrics.IncClaimProcessed("rejected")
	summary.ClaimsRejected++
}
