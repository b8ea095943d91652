package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/ingress"
	"github.com/ManuelReschke/PayFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/PayFox/internal/pkg/lock"
	"github.com/ManuelReschke/PayFox/internal/pkg/metrics"
)

const (
	defaultLockTTL = 30 * time.Second
	enqueueTimeout = 2 * time.Second
)

// Locker serializes deliveries of one provider transaction.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// FanOut hands work to background workers. Enqueueing must be fast; the
// job itself runs outside the request.
type FanOut interface {
	EnqueueJob(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// Sealer encrypts stored payment method details.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
}

// Options configures an Engine. Repositories are required; Locker, FanOut
// and Sealer are optional.
type Options struct {
	Provider         string
	Secret           string
	RequireSignature bool
	LockTTL          time.Duration
	ArchivePayloads  bool
	Strategies       []Strategy

	Repositories *repository.Repositories
	Locker       Locker
	FanOut       FanOut
	Sealer       Sealer
	Now          func() time.Time
}

// Engine turns gateway deliveries into transaction, invoice, order and
// payment method effects.
type Engine struct {
	provider         string
	secret           string
	requireSignature bool
	lockTTL          time.Duration
	archivePayloads  bool
	strategies       []Strategy

	logs           repository.WebhookLogRepository
	transactions   repository.TransactionRepository
	invoices       repository.InvoiceRepository
	paymentMethods repository.PaymentMethodRepository

	locker Locker
	fanOut FanOut
	sealer Sealer
	audit  *Audit
	now    func() time.Time
}

// NewEngine creates an Engine from opts.
func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Provider == "" {
		opts.Provider = "netcash"
	}
	if opts.Strategies == nil {
		opts.Strategies = Strategies
	}

	return &Engine{
		provider:         opts.Provider,
		secret:           opts.Secret,
		requireSignature: opts.RequireSignature,
		lockTTL:          opts.LockTTL,
		archivePayloads:  opts.ArchivePayloads,
		strategies:       opts.Strategies,
		logs:             opts.Repositories.WebhookLog,
		transactions:     opts.Repositories.Transaction,
		invoices:         opts.Repositories.Invoice,
		paymentMethods:   opts.Repositories.PaymentMethod,
		locker:           opts.Locker,
		fanOut:           opts.FanOut,
		sealer:           opts.Sealer,
		audit:            NewAudit(opts.Repositories.WebhookLog, opts.Now),
		now:              opts.Now,
	}
}

// SignatureVerification reports whether deliveries are HMAC-checked.
func (e *Engine) SignatureVerification() bool {
	return e.secret != ""
}

// Provider returns the gateway name deliveries are recorded under.
func (e *Engine) Provider() string {
	return e.provider
}

// Process runs one delivery through parse, verify, guard, match, upsert and
// dispatch. Every delivery ends with a terminal WebhookLog except a
// duplicate of an already processed transaction.
func (e *Engine) Process(ctx context.Context, req Request) (res Result, err error) {
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = e.now()
	}
	d := Delivery{Provider: e.provider, Request: req}

	payload, err := ingress.Parse(req.Body, req.ContentType)
	if err != nil {
		d.Fields = ingress.ExtractFields(nil, req.WebhookIDHeader)
		e.audit.Reject(ctx, d, err.Error())
		return d.result(""), err
	}
	d.Payload = payload
	d.Fields = ingress.ExtractFields(payload, req.WebhookIDHeader)

	verified, err := ingress.VerifySignature(req.Body, req.Signature, e.secret, e.requireSignature)
	if err != nil {
		log.Warnf("[Reconcile] Rejected webhook %s from %s: %v", d.Fields.WebhookID, req.SourceIP, err)
		e.audit.Reject(ctx, d, err.Error())
		return d.result(""), err
	}
	d.SignatureVerified = verified
	d.Status = ingress.ResolveStatus(d.Fields.Signals)

	if d.HasTransactionID() {
		release, err := e.acquire(ctx, d)
		if err != nil {
			e.audit.Reject(ctx, d, err.Error())
			return d.result(""), err
		}
		defer release()

		duplicate, err := e.guard(ctx, d)
		if err != nil {
			log.Errorf("[Reconcile] Webhook %s: %v", d.Fields.WebhookID, err)
			e.audit.Reject(ctx, d, err.Error())
			return d.result(""), err
		}
		if duplicate {
			log.Infof("[Reconcile] Webhook %s for %s already processed", d.Fields.WebhookID, d.ProcessedKey())
			r := d.result(MessageAlreadyProcessed)
			r.Duplicate = true
			return r, nil
		}
	}

	entry, err := e.audit.Begin(ctx, d)
	if err != nil {
		return d.result(""), fmt.Errorf("create webhook log: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while reconciling webhook %s: %v", d.Fields.WebhookID, r)
			log.Errorf("[Reconcile] %v", err)
			e.audit.Fail(ctx, entry, err.Error(), d.Actions)
			res = d.result("")
		}
	}()

	d, err = e.reconcile(ctx, d)
	if err != nil {
		log.Errorf("[Reconcile] Webhook %s failed: %v", d.Fields.WebhookID, err)
		e.audit.Fail(ctx, entry, err.Error(), d.Actions)
		return d.result(""), err
	}

	if err := e.audit.Complete(ctx, entry, d.Actions); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Warnf("[Reconcile] %s was processed concurrently by another delivery", d.ProcessedKey())
			e.audit.Fail(ctx, entry, "duplicate: processed by another delivery", d.Actions)
			r := d.result(MessageAlreadyProcessed)
			r.Duplicate = true
			return r, nil
		}
		return d.result(""), fmt.Errorf("finalize webhook log: %w", err)
	}

	metrics.ObservePaymentStatus(d.Status)
	log.Infof("[Reconcile] Webhook %s processed: tx=%s status=%s actions=%v", d.Fields.WebhookID, d.Fields.TransactionID, d.Status, d.Actions)
	return d.result(MessageProcessed), nil
}

// acquire takes the per-transaction lock. Lock backend failures degrade to
// unlocked processing; the processed key index still rejects a second
// processed row.
func (e *Engine) acquire(ctx context.Context, d Delivery) (func(), error) {
	noop := func() {}
	if e.locker == nil {
		return noop, nil
	}
	release, err := e.locker.Acquire(ctx, d.ProcessedKey(), e.lockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, ErrInFlight
	}
	if err != nil {
		log.Warnf("[Reconcile] Lock unavailable for %s, continuing unlocked: %v", d.ProcessedKey(), err)
		return noop, nil
	}
	return release, nil
}

func (e *Engine) reconcile(ctx context.Context, d Delivery) (Delivery, error) {
	tx, strategy, err := MatchTransaction(ctx, e.transactions, e.strategies, d.Fields.TransactionID, d.Fields.Reference)
	if err != nil {
		return d, err
	}
	if tx != nil {
		log.Debugf("[Reconcile] Matched transaction %d by %s", tx.ID, strategy)
	}

	d, err = e.upsertTransaction(ctx, d, tx)
	if err != nil {
		return d, err
	}

	if d.Status == models.PaymentStatusCompleted && d.Transaction != nil {
		d, err = e.dispatch(ctx, d)
		if err != nil {
			return d, err
		}
	}

	if e.archivePayloads {
		d = e.enqueue(ctx, d, jobqueue.JobTypeWebhookArchive, jobqueue.WebhookArchiveJobPayload{
			WebhookID:   d.Fields.WebhookID,
			Provider:    d.Provider,
			ContentType: d.Request.ContentType,
			ReceivedAt:  d.Request.ReceivedAt,
			RawBody:     string(d.Request.Body),
		}.ToMap(), ActionPayloadArchiveQueued)
	}
	return d, nil
}

// enqueue hands a job to the fan-out. Failures never fail the delivery;
// they are recorded as an action instead.
func (e *Engine) enqueue(ctx context.Context, d Delivery, jobType jobqueue.JobType, payload map[string]interface{}, action string) Delivery {
	if e.fanOut == nil {
		return d
	}
	ectx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()

	if _, err := e.fanOut.EnqueueJob(ectx, jobType, payload); err != nil {
		log.Errorf("[Reconcile] Failed to enqueue %s for webhook %s: %v", jobType, d.Fields.WebhookID, err)
		metrics.ObserveFanOut(string(jobType), "enqueue_failed")
		return d.WithAction(string(jobType) + ActionFanOutFailedSuffix)
	}
	return d.WithAction(action)
}

// SweepStale finalizes logs left in processing by a crashed process.
func (e *Engine) SweepStale(ctx context.Context) (int64, error) {
	cutoff := e.now().Add(-DefaultStaleProcessingDuration)
	n, err := e.logs.FinalizeStale(ctx, cutoff, StaleProcessingReason)
	if err != nil {
		return 0, fmt.Errorf("finalize stale webhook logs: %w", err)
	}
	if n > 0 {
		log.Warnf("[Reconcile] Marked %d stale webhook logs as failed", n)
	}
	return n, nil
}

// LogStats counts webhook logs by status.
func (e *Engine) LogStats(ctx context.Context) (map[string]int64, error) {
	return e.logs.CountByStatus(ctx)
}
