// Package observability ships sinks for the simulator's completion
// events. The core emits one structured event per request; everything
// here is about getting those events onto a log stream.
package observability

import (
	"log/slog"

	paysim "github.com/corebank/paysim"
)

// SlogEmitter writes one structured log record per completion event.
// Account fields on the event arrive pre-redacted.
type SlogEmitter struct {
	logger *slog.Logger
}

// NewSlogEmitter creates an emitter over the given logger. A nil logger
// uses slog's default.
func NewSlogEmitter(logger *slog.Logger) *SlogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEmitter{logger: logger}
}

// Emit logs the event at INFO with a stable attribute set.
func (e *SlogEmitter) Emit(event paysim.CompletionEvent) {
	attrs := []any{
		slog.String("tenant", event.Tenant),
		slog.String("route", event.Route),
		slog.String("method", event.Method),
		slog.Int("status", event.StatusCode),
		slog.Int64("duration_ms", event.DurationMs),
		slog.String("req_id", event.RequestID),
		slog.String("outcome", event.Outcome),
		slog.String("client_transfer_id", event.ClientTransferID),
		slog.String("source_account", event.SourceAccount),
		slog.String("destination_account", event.DestinationAccount),
		slog.String("amount", event.Amount),
		slog.String("currency", event.Currency),
		slog.Bool("replay", event.Replay),
	}
	if event.ReasonCode != "" {
		attrs = append(attrs, slog.String("reason", event.ReasonCode))
	}
	if event.TransactionID != "" {
		attrs = append(attrs, slog.String("transaction_id", event.TransactionID))
	}
	e.logger.Info("transfer processed", attrs...)
}

var _ paysim.Emitter = (*SlogEmitter)(nil)
