// Package paysim implements a core-banking payments simulator: a funds
// transfer pipeline with fault injection, simulated latency, and an
// idempotency cache that guarantees at-most-one execution per request key.
package paysim

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
)

// FailureReason identifies why a simulated transfer was declined.
type FailureReason string

const (
	ReasonInsufficientFunds  FailureReason = "INSUFFICIENT_FUNDS"
	ReasonDailyLimitExceeded FailureReason = "DAILY_LIMIT_EXCEEDED"
	ReasonAccountClosed      FailureReason = "ACCOUNT_CLOSED"
	ReasonComplianceBlock    FailureReason = "COMPLIANCE_BLOCK"
	ReasonTimeoutUpstream    FailureReason = "TIMEOUT_UPSTREAM"
	ReasonDuplicateTransfer  FailureReason = "DUPLICATE_TRANSFER"
	ReasonInvalidTenant      FailureReason = "INVALID_TENANT"
)

// AllFailureReasons lists every failure reason in a fixed order so that
// seeded random selection is reproducible.
var AllFailureReasons = []FailureReason{
	ReasonInsufficientFunds,
	ReasonDailyLimitExceeded,
	ReasonAccountClosed,
	ReasonComplianceBlock,
	ReasonTimeoutUpstream,
	ReasonDuplicateTransfer,
	ReasonInvalidTenant,
}

var reasonStatusCodes = map[FailureReason]int{
	ReasonInsufficientFunds:  http.StatusPaymentRequired,
	ReasonDailyLimitExceeded: http.StatusTooManyRequests,
	ReasonAccountClosed:      http.StatusConflict,
	ReasonComplianceBlock:    http.StatusLocked,
	ReasonTimeoutUpstream:    http.StatusGatewayTimeout,
	ReasonDuplicateTransfer:  http.StatusConflict,
	ReasonInvalidTenant:      http.StatusBadRequest,
}

var reasonMessages = map[FailureReason]string{
	ReasonInsufficientFunds:  "Insufficient funds in source account",
	ReasonDailyLimitExceeded: "Daily transfer limit exceeded",
	ReasonAccountClosed:      "Account is closed",
	ReasonComplianceBlock:    "Transfer blocked for compliance reasons",
	ReasonTimeoutUpstream:    "Upstream service timeout",
	ReasonDuplicateTransfer:  "Duplicate transfer detected",
	ReasonInvalidTenant:      "Invalid or missing tenant identifier",
}

// StatusCode returns the HTTP status associated with the reason.
func (r FailureReason) StatusCode() int {
	if code, ok := reasonStatusCodes[r]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Message returns the human-readable message associated with the reason.
func (r FailureReason) Message() string {
	return reasonMessages[r]
}

// Outcome statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Amount is a fixed-point monetary value held in minor units (cents).
// JSON input may be a decimal string or a bare number; more than two
// fractional digits is invalid, fewer are canonicalized to exactly two.
type Amount struct {
	cents int64
}

// AmountFromCents builds an Amount from a value in minor units.
func AmountFromCents(cents int64) Amount {
	return Amount{cents: cents}
}

// ParseAmount parses a decimal amount string into an Amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("amount is empty")
	}
	// big.Rat also accepts exponent and a/b forms; those are not valid
	// money literals here.
	if strings.ContainsAny(s, "eE/") {
		return Amount{}, fmt.Errorf("invalid amount: %s", s)
	}
	rat, ok := new(big.Rat).SetString(s)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount: %s", s)
	}
	if rat.Sign() <= 0 {
		return Amount{}, fmt.Errorf("amount must be greater than zero")
	}
	scaled := new(big.Rat).Mul(rat, big.NewRat(100, 1))
	if !scaled.IsInt() {
		return Amount{}, fmt.Errorf("amount must have at most 2 decimal places")
	}
	if !scaled.Num().IsInt64() {
		return Amount{}, fmt.Errorf("amount out of range: %s", s)
	}
	return Amount{cents: scaled.Num().Int64()}, nil
}

// Cents returns the value in minor units.
func (a Amount) Cents() int64 { return a.cents }

// IsZero reports whether the amount was never set.
func (a Amount) IsZero() bool { return a.cents == 0 }

// String renders the canonical two-decimal form, e.g. "10.50".
func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", a.cents/100, a.cents%100)
}

// MarshalJSON renders the amount as a canonical decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts either a JSON string ("10.50") or number (10.5).
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("invalid amount: %s", s)
		}
		s = unquoted
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// TransferRequest is the payload of a simulated funds transfer.
type TransferRequest struct {
	ClientTransferID   string `json:"client_transfer_id"`
	SourceAccount      string `json:"source_account"`
	DestinationAccount string `json:"destination_account"`
	Amount             Amount `json:"amount"`
	Currency           string `json:"currency"`
	Reference          string `json:"reference,omitempty"`
}

// Outcome is the recorded result of a transfer attempt. Success carries a
// transaction id and processing time; failure carries a reason code and
// message. Both carry the client transfer id for correlation. Outcomes are
// immutable once recorded in the idempotency cache.
type Outcome struct {
	Status           string `json:"status"`
	ReasonCode       string `json:"reason_code,omitempty"`
	TransactionID    string `json:"transaction_id,omitempty"`
	ClientTransferID string `json:"client_transfer_id"`
	ProcessingTimeMs int    `json:"processing_time_ms,omitempty"`
	Message          string `json:"message,omitempty"`
}

// NewSuccessOutcome builds a SUCCESS outcome for a completed transfer.
func NewSuccessOutcome(transactionID, clientTransferID string, processingMs int) Outcome {
	return Outcome{
		Status:           StatusSuccess,
		TransactionID:    transactionID,
		ClientTransferID: clientTransferID,
		ProcessingTimeMs: processingMs,
		Message:          "Transfer completed",
	}
}

// NewFailureOutcome builds a FAILED outcome from the reason table.
func NewFailureOutcome(reason FailureReason, clientTransferID string) Outcome {
	return Outcome{
		Status:           StatusFailed,
		ReasonCode:       string(reason),
		ClientTransferID: clientTransferID,
		Message:          reason.Message(),
	}
}
