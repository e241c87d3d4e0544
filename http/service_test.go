package http

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paysim "github.com/corebank/paysim"
)

func newTestService(t *testing.T, faultRate float64) *Service {
	t.Helper()
	cache := paysim.NewIdempotencyCache(100, time.Minute)
	faults := paysim.NewFaultModel(
		paysim.WithFaultRate(faultRate),
		paysim.WithJitter(0),
		paysim.WithModelRand(paysim.NewSeededRand(42)),
	)
	processor := paysim.NewProcessor(cache, faults)
	return NewService(processor, cache)
}

const validBody = `{
	"client_transfer_id": "abc",
	"source_account": "A1",
	"destination_account": "A2",
	"amount": "10.00",
	"currency": "USD"
}`

func TestService_Transfer_SuccessAndReplay(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	status1, resp1, reqID1 := svc.Transfer(ctx, []byte(validBody), "bank-a.example", "", "req-1")
	require.Equal(t, 200, status1)
	require.Equal(t, "req-1", reqID1)

	outcome1, ok := resp1.(paysim.Outcome)
	require.True(t, ok)
	require.Equal(t, paysim.StatusSuccess, outcome1.Status)
	require.NotEmpty(t, outcome1.TransactionID)
	require.Equal(t, "abc", outcome1.ClientTransferID)
	require.Positive(t, outcome1.ProcessingTimeMs)

	// Second call with the same key replays the identical outcome.
	status2, resp2, _ := svc.Transfer(ctx, []byte(validBody), "bank-a.example", "", "req-2")
	require.Equal(t, 200, status2)
	outcome2 := resp2.(paysim.Outcome)
	assert.Equal(t, outcome1, outcome2)
}

func TestService_Transfer_GeneratesRequestID(t *testing.T) {
	svc := newTestService(t, 0)

	_, _, reqID := svc.Transfer(context.Background(), []byte(validBody), "host", "", "")
	assert.NotEmpty(t, reqID)
}

func TestService_Transfer_AlwaysFails(t *testing.T) {
	svc := newTestService(t, 1)

	status, resp, _ := svc.Transfer(context.Background(), []byte(validBody), "host", "", "")
	outcome, ok := resp.(paysim.Outcome)
	require.True(t, ok)
	assert.Equal(t, paysim.StatusFailed, outcome.Status)

	reason := paysim.FailureReason(outcome.ReasonCode)
	assert.Contains(t, paysim.AllFailureReasons, reason)
	assert.Equal(t, reason.StatusCode(), status)
	assert.Equal(t, reason.Message(), outcome.Message)
}

func TestService_Transfer_ValidationErrors(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"malformed JSON", `{not json`, 400, ""},
		{"missing client id", `{"source_account":"A1","destination_account":"A2","amount":"1.00","currency":"USD"}`, 422, "client_transfer_id"},
		{"bad amount precision", `{"client_transfer_id":"abc","source_account":"A1","destination_account":"A2","amount":"10.005","currency":"USD"}`, 422, "amount"},
		{"lowercase currency", `{"client_transfer_id":"abc","source_account":"A1","destination_account":"A2","amount":"10.00","currency":"usd"}`, 422, "currency"},
		{"amount zero", `{"client_transfer_id":"abc","source_account":"A1","destination_account":"A2","amount":"0","currency":"USD"}`, 422, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, _ := svc.Transfer(ctx, []byte(tt.body), "host", "", "")
			require.Equal(t, tt.wantStatus, status)

			errResp, ok := resp.(ErrorResponse)
			require.True(t, ok)
			assert.Equal(t, paysim.StatusFailed, errResp.Status)
			assert.Equal(t, paysim.ErrCodeValidation, errResp.ReasonCode)
			if tt.wantField != "" {
				assert.Contains(t, errResp.Message, tt.wantField)
			}
		})
	}
}

func TestService_Transfer_ValidationNotCached(t *testing.T) {
	svc := newTestService(t, 0)
	ctx := context.Background()

	bad := `{"client_transfer_id":"abc","source_account":"A1","destination_account":"A2","amount":"10.005","currency":"USD"}`
	status, _, _ := svc.Transfer(ctx, []byte(bad), "host", "shared-key", "")
	require.Equal(t, 422, status)

	// A later valid request under the same key processes fresh.
	status, resp, _ := svc.Transfer(ctx, []byte(validBody), "host", "shared-key", "")
	require.Equal(t, 200, status)
	assert.Equal(t, paysim.StatusSuccess, resp.(paysim.Outcome).Status)
}

func TestService_Health(t *testing.T) {
	svc := newTestService(t, 0)

	status, resp := svc.Health()
	assert.Equal(t, 200, status)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.CacheEntries)

	svc.Transfer(context.Background(), []byte(validBody), "host", "", "")
	_, resp = svc.Health()
	assert.Equal(t, 1, resp.CacheEntries)
}

func TestDecodeTransferRequest_SchemaMessages(t *testing.T) {
	_, err := DecodeTransferRequest([]byte(`{"client_transfer_id":"abc"}`))
	require.Error(t, err)

	var verr *paysim.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = DecodeTransferRequest([]byte(`[1,2,3]`))
	require.Error(t, err, "non-object body must be rejected")
}

func TestDecodeTransferRequest_Canonicalization(t *testing.T) {
	body := `{"client_transfer_id":"abc","source_account":"A1","destination_account":"A2","amount":10.5,"currency":"USD","reference":"invoice 7"}`
	req, err := DecodeTransferRequest([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "10.50", req.Amount.String())
	assert.Equal(t, "invoice 7", req.Reference)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":"10.50"`)
}
