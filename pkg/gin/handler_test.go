package gin

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paysim "github.com/corebank/paysim"
	transferhttp "github.com/corebank/paysim/http"
)

func newTestEngine(t *testing.T, faultRate float64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache := paysim.NewIdempotencyCache(100, time.Minute)
	faults := paysim.NewFaultModel(
		paysim.WithFaultRate(faultRate),
		paysim.WithJitter(0),
		paysim.WithModelRand(paysim.NewSeededRand(7)),
	)
	svc := transferhttp.NewService(paysim.NewProcessor(cache, faults), cache)

	r := gin.New()
	RegisterRoutes(r, svc)
	return r
}

const validBody = `{"client_transfer_id":"abc","source_account":"A1","destination_account":"A2","amount":"10.00","currency":"USD"}`

func TestGin_Transfer(t *testing.T) {
	r := newTestEngine(t, 0)

	req := httptest.NewRequest("POST", "/transfer", strings.NewReader(validBody))
	req.Header.Set(transferhttp.HeaderRequestID, "req-9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "req-9", rec.Header().Get(transferhttp.HeaderRequestID))

	var outcome paysim.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, paysim.StatusSuccess, outcome.Status)
}

func TestGin_TransferFailureStatus(t *testing.T) {
	r := newTestEngine(t, 1)

	req := httptest.NewRequest("POST", "/transfer", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var outcome paysim.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.Equal(t, paysim.StatusFailed, outcome.Status)
	assert.Equal(t, paysim.FailureReason(outcome.ReasonCode).StatusCode(), rec.Code)
}

func TestGin_Healthz(t *testing.T) {
	r := newTestEngine(t, 0)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)

	var resp transferhttp.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
