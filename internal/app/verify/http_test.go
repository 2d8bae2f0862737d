package verify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verification-system/internal/common/logger"
	"verification-system/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc, _, _, _ := newTestService(t)
	srv := httptest.NewServer(newMux(svc, logger.New("test")))
	t.Cleanup(srv.Close)
	return srv
}

func postReport(t *testing.T, srv *httptest.Server, req domain.SubmitReportRequest) *http.Response {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/reports", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestHandleReports_CollectingThenVerified(t *testing.T) {
	srv := newTestServer(t)

	resp := postReport(t, srv, submitRequest("mara", "CALL_1", "Burger"))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var body domain.SubmitReportResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "collecting", body.Status)
	assert.Equal(t, 1, body.ReportsReceived)

	postReport(t, srv, submitRequest("llama", "CALL_1", "Burger")).Body.Close()
	resp = postReport(t, srv, submitRequest("ollama", "CALL_1", "Burger"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "verified", body.Status)
	require.NotNil(t, body.Result)
	assert.True(t, body.Result.Approved)
}

func TestHandleReports_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	resp := postReport(t, srv, submitRequest("vera", "CALL_1", "Burger"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	bad := submitRequest("mara", "CALL_1", "Burger")
	bad.Order.Items = nil
	resp = postReport(t, srv, bad)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	raw, err := http.Post(srv.URL+"/reports", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
	raw.Body.Close()

	get, err := http.Get(srv.URL + "/reports")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
	get.Body.Close()
}

func TestHandleVerifications_LookupAndMiss(t *testing.T) {
	srv := newTestServer(t)

	for _, agent := range []string{"mara", "llama", "ollama"} {
		postReport(t, srv, submitRequest(agent, "CALL_1", "Burger")).Body.Close()
	}

	resp, err := http.Get(srv.URL + "/verifications/CALL_1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var res domain.VerificationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()
	assert.Equal(t, "CALL_1", res.CallID)
	assert.Equal(t, domain.ConsensusPerfect, res.ConsensusLevel)

	miss, err := http.Get(srv.URL + "/verifications/CALL_MISSING")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, miss.StatusCode)
	miss.Body.Close()
}

func TestHandleStats(t *testing.T) {
	srv := newTestServer(t)

	for _, agent := range []string{"mara", "llama", "ollama"} {
		postReport(t, srv, submitRequest(agent, "CALL_1", "Burger")).Body.Close()
	}

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var stats domain.StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 1, stats.VerifiedCalls)
	assert.Equal(t, 1, stats.DispatchedCount)
}
