// Package http provides the HTTP boundary of the payments simulator:
// request decoding and validation, header handling, and a framework-
// agnostic transfer service consumed by the gin and echo adapters under
// pkg/.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	paysim "github.com/corebank/paysim"
)

// Request headers honored by the transfer endpoint.
const (
	// HeaderIdempotencyKey overrides idempotency key derivation.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderRequestID carries the correlation id; generated when absent
	// and always echoed on the response.
	HeaderRequestID = "X-Request-Id"
)

// ErrorResponse is the body returned for validation and internal errors.
// It mirrors the FAILED transfer shape so clients parse one schema.
type ErrorResponse struct {
	Status           string `json:"status"`
	ReasonCode       string `json:"reason_code"`
	Message          string `json:"message"`
	ClientTransferID string `json:"client_transfer_id,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status       string `json:"status"`
	CacheEntries int    `json:"cache_entries"`
}

// Service is the transport-agnostic transfer endpoint. The gin and echo
// adapters and the stdlib handler all delegate here.
type Service struct {
	processor *paysim.Processor
	cache     *paysim.IdempotencyCache
}

// NewService creates a Service over a processor and its cache.
func NewService(processor *paysim.Processor, cache *paysim.IdempotencyCache) *Service {
	return &Service{processor: processor, cache: cache}
}

// Transfer runs the full request boundary: decode and validate the body,
// derive tenant/key/request-id, process, and shape the response.
//
// requestID is returned (generated if the caller passed none) so the
// transport can echo it in the X-Request-Id header on every path.
func (s *Service) Transfer(ctx context.Context, body []byte, host, idempotencyKey, requestID string) (status int, response any, echoedID string) {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req, err := DecodeTransferRequest(body)
	if err != nil {
		status, resp := validationResponse(err, req.ClientTransferID)
		return status, resp, requestID
	}

	tenant := host
	if tenant == "" {
		tenant = "unknown"
	}

	result := s.processor.Process(ctx, req, paysim.RequestMeta{
		IdempotencyKey: idempotencyKey,
		Tenant:         tenant,
		RequestID:      requestID,
	})
	return result.StatusCode, result.Outcome, requestID
}

// Health reports liveness and the current cache size.
func (s *Service) Health() (int, HealthResponse) {
	return http.StatusOK, HealthResponse{Status: "ok", CacheEntries: s.cache.Len()}
}

// Handler returns a plain net/http handler serving POST /transfer and
// GET /healthz, for deployments that don't want a framework.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transfer", func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Status:     paysim.StatusFailed,
				ReasonCode: paysim.ErrCodeValidation,
				Message:    "request body unreadable",
			})
			return
		}
		status, resp, requestID := s.Transfer(r.Context(), body,
			r.Host, r.Header.Get(HeaderIdempotencyKey), r.Header.Get(HeaderRequestID))
		w.Header().Set(HeaderRequestID, requestID)
		writeJSON(w, status, resp)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		status, resp := s.Health()
		writeJSON(w, status, resp)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

// validationResponse shapes a decode/validation failure. Malformed JSON
// is a 400; a well-formed body with invalid fields is a 422. Neither is
// ever cached or counted as a business failure.
func validationResponse(err error, clientTransferID string) (int, ErrorResponse) {
	status := http.StatusUnprocessableEntity
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		status = http.StatusBadRequest
	}
	return status, ErrorResponse{
		Status:           paysim.StatusFailed,
		ReasonCode:       paysim.ErrCodeValidation,
		Message:          err.Error(),
		ClientTransferID: clientTransferID,
	}
}
