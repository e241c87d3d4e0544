package paysim

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// TransferRoute is the logical route tag carried on completion events.
const TransferRoute = "/transfer"

// RequestMeta carries the transport-level context of a transfer request:
// the optional idempotency key override, the tenant label, and the
// correlation id.
type RequestMeta struct {
	IdempotencyKey string
	Tenant         string
	RequestID      string
}

// Result is the resolved response for a transfer request.
type Result struct {
	StatusCode int
	Outcome    Outcome
	Replay     bool
}

// Processor orchestrates a transfer: derive key, acquire the per-key
// exclusivity handle, consult the idempotency cache, run the fault model
// on a miss, record the outcome, release, and emit one completion event.
//
// For a fixed key, concurrent submissions are totally ordered by handle
// acquisition: the first runs the fault model, the rest replay the
// committed entry. Distinct keys process in parallel.
type Processor struct {
	cache    *IdempotencyCache
	faults   *FaultModel
	clock    Clock
	emitter  Emitter
	nextTxID func() string
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithEmitter sets the completion event sink.
//
// Default: NopEmitter.
func WithEmitter(emitter Emitter) ProcessorOption {
	return func(p *Processor) {
		p.emitter = emitter
	}
}

// WithProcessorClock sets the clock used for request duration stamping.
func WithProcessorClock(clock Clock) ProcessorOption {
	return func(p *Processor) {
		p.clock = clock
	}
}

// WithTransactionIDs overrides transaction id minting. Useful in tests
// that assert on ids.
func WithTransactionIDs(next func() string) ProcessorOption {
	return func(p *Processor) {
		p.nextTxID = next
	}
}

// NewProcessor creates a transfer processor over the given cache and
// fault model.
func NewProcessor(cache *IdempotencyCache, faults *FaultModel, opts ...ProcessorOption) *Processor {
	p := &Processor{
		cache:    cache,
		faults:   faults,
		nextTxID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = NewSystemClock()
	}
	if p.emitter == nil {
		p.emitter = NopEmitter{}
	}
	return p
}

// DeriveKey computes the idempotency key for a request: the header value
// if present, else the client transfer id. The namespace is shared across
// tenants; callers make keys unique by business context.
func DeriveKey(req TransferRequest, meta RequestMeta) string {
	if meta.IdempotencyKey != "" {
		return meta.IdempotencyKey
	}
	return req.ClientTransferID
}

// Process runs one transfer request through the pipeline and returns the
// resolved outcome and status. The request must already be validated.
//
// Every exit path releases the per-key handle and emits exactly one
// completion event. Unexpected panics are recovered into a generic 500
// outcome that is not cached, so a retry can re-attempt processing.
func (p *Processor) Process(ctx context.Context, req TransferRequest, meta RequestMeta) Result {
	start := p.clock.Now()
	key := DeriveKey(req, meta)

	lock := p.cache.Lock(key)
	lock.Acquire()

	res := p.resolve(ctx, key, req, lock)

	p.emitter.Emit(CompletionEvent{
		Tenant:             meta.Tenant,
		Route:              TransferRoute,
		Method:             http.MethodPost,
		StatusCode:         res.StatusCode,
		DurationMs:         p.clock.Now().Sub(start).Milliseconds(),
		RequestID:          meta.RequestID,
		Outcome:            res.Outcome.Status,
		ReasonCode:         res.Outcome.ReasonCode,
		TransactionID:      res.Outcome.TransactionID,
		ClientTransferID:   req.ClientTransferID,
		SourceAccount:      RedactAccount(req.SourceAccount),
		DestinationAccount: RedactAccount(req.DestinationAccount),
		Amount:             req.Amount.String(),
		Currency:           req.Currency,
		Replay:             res.Replay,
	})
	return res
}

// resolve holds the per-key handle for the duration of cache consultation
// and simulated processing. It recovers panics so the handle is released
// and the caller still gets a well-formed result.
func (p *Processor) resolve(ctx context.Context, key string, req TransferRequest, lock *KeyLock) (res Result) {
	defer lock.Release()
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				StatusCode: http.StatusInternalServerError,
				Outcome:    NewInternalOutcome(req.ClientTransferID),
			}
		}
	}()

	if entry, ok := p.cache.Lookup(key); ok {
		return Result{StatusCode: entry.StatusCode, Outcome: entry.Outcome, Replay: true}
	}

	elapsed := p.faults.SimulateProcessing(ctx)

	if p.faults.ShouldFail() {
		reason := p.faults.SelectReason()
		if reason == ReasonTimeoutUpstream {
			elapsed = p.faults.CompensateTimeout(ctx, elapsed)
		}
		outcome := NewFailureOutcome(reason, req.ClientTransferID)
		status := reason.StatusCode()
		p.cache.Record(key, outcome, status)
		return Result{StatusCode: status, Outcome: outcome}
	}

	outcome := NewSuccessOutcome(p.nextTxID(), req.ClientTransferID, elapsed)
	p.cache.Record(key, outcome, http.StatusOK)
	return Result{StatusCode: http.StatusOK, Outcome: outcome}
}
