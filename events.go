package paysim

// CompletionEvent is the structured record emitted once per processed
// transfer request. The core never formats log lines or metric samples
// itself; sinks consume events through the Emitter interface.
//
// Account fields are pre-redacted, so a sink can log the event verbatim.
type CompletionEvent struct {
	Tenant             string
	Route              string
	Method             string
	StatusCode         int
	DurationMs         int64
	RequestID          string
	Outcome            string
	ReasonCode         string
	TransactionID      string
	ClientTransferID   string
	SourceAccount      string
	DestinationAccount string
	Amount             string
	Currency           string
	Replay             bool
}

// Emitter receives completion events. Implementations must be safe for
// concurrent use; emission happens outside the cache's critical sections.
type Emitter interface {
	Emit(event CompletionEvent)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(CompletionEvent)

func (f EmitterFunc) Emit(event CompletionEvent) { f(event) }

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(CompletionEvent) {}

// RedactAccount masks an account identifier for observability output,
// keeping at most the last 4 characters.
func RedactAccount(account string) string {
	if len(account) <= 4 {
		return "****"
	}
	masked := make([]byte, len(account)-4)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + account[len(account)-4:]
}
