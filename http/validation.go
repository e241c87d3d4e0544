package http

import (
	"encoding/json"
	"fmt"
	"regexp"

	paysim "github.com/corebank/paysim"
)

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// Field length limits on TransferRequest.
const (
	maxClientTransferIDLen = 100
	maxReferenceLen        = 120
)

// DecodeError marks a body that is not parseable JSON at all, as opposed
// to a well-formed body with invalid fields.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid request body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeTransferRequest parses and validates a transfer request body.
//
// The body is first checked against the embedded JSON Schema, which
// catches missing fields and type mismatches with precise messages, then
// unmarshalled and checked semantically (amount precision, currency
// format, length limits).
func DecodeTransferRequest(body []byte) (paysim.TransferRequest, error) {
	if !json.Valid(body) {
		return paysim.TransferRequest{}, &DecodeError{Err: fmt.Errorf("not valid JSON")}
	}

	if err := validateSchema(body); err != nil {
		return paysim.TransferRequest{}, err
	}

	var req paysim.TransferRequest
	if err := json.Unmarshal(body, &req); err != nil {
		// The schema admits any amount string/number; precision errors
		// surface here from Amount.UnmarshalJSON.
		return paysim.TransferRequest{}, paysim.NewValidationError("amount", err.Error())
	}

	if err := ValidateTransferRequest(req); err != nil {
		return req, err
	}
	return req, nil
}

// ValidateTransferRequest performs semantic validation on a decoded
// transfer request.
func ValidateTransferRequest(req paysim.TransferRequest) error {
	if req.ClientTransferID == "" {
		return paysim.NewValidationError("client_transfer_id", "is required")
	}
	if len(req.ClientTransferID) > maxClientTransferIDLen {
		return paysim.NewValidationError("client_transfer_id", fmt.Sprintf("must be at most %d characters", maxClientTransferIDLen))
	}
	if req.SourceAccount == "" {
		return paysim.NewValidationError("source_account", "is required")
	}
	if req.DestinationAccount == "" {
		return paysim.NewValidationError("destination_account", "is required")
	}
	if req.Amount.IsZero() {
		return paysim.NewValidationError("amount", "is required")
	}
	if !currencyRegex.MatchString(req.Currency) {
		return paysim.NewValidationError("currency", "must be a 3-letter uppercase code")
	}
	if len(req.Reference) > maxReferenceLen {
		return paysim.NewValidationError("reference", fmt.Sprintf("must be at most %d characters", maxReferenceLen))
	}
	return nil
}
