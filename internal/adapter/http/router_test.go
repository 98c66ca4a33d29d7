package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/iho/gorecon/internal/adapter/http"
	"github.com/iho/gorecon/internal/adapter/http/handler"
	"github.com/iho/gorecon/internal/adapter/repository/memory"
	"github.com/iho/gorecon/internal/matching"
	"github.com/iho/gorecon/internal/usecase"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	uc := usecase.NewReconcileUseCase(
		memory.NewSessionRepository(0),
		memory.NewULIDGenerator(),
		zerolog.Nop(),
		nil,
	)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		ReconcileHandler: handler.NewReconcileHandler(uc, matching.Default()),
		HealthHandler:    handler.NewHealthHandler(),
		Logger:           zerolog.Nop(),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

func reconcileBody() []byte {
	return []byte(`{
		"ledger": [
			{"id": "L1", "date": "2026-03-01", "amount": "150.00", "description": "Vendor payment ACME"},
			{"id": "L2", "date": "2026-03-02", "amount": "-42.17", "description": "Office supplies"}
		],
		"bank": [
			{"id": "B1", "date": "2026-03-01", "amount": "150.00", "description": "vendor payment acme"},
			{"id": "B2", "date": "2026-03-09", "amount": "700.00", "description": "wire transfer inbound"}
		]
	}`)
}

func TestRouterHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestRouterReconcileLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/reconciliations", "application/json", bytes.NewReader(reconcileBody()))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
		Stats struct {
			MatchedPairs int `json:"matched_pairs"`
		} `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "FINALIZED", created.Stage)
	assert.Equal(t, 1, created.Stats.MatchedPairs)

	getResp, err := http.Get(srv.URL + "/api/v1/reconciliations/" + created.ID)
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	listResp, err := http.Get(srv.URL + "/api/v1/reconciliations?limit=10")
	require.NoError(t, err)
	defer listResp.Body.Close()
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	var sessions []json.RawMessage
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&sessions))
	assert.Len(t, sessions, 1)
}

func TestRouterReportFormats(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/reconciliations", "application/json", bytes.NewReader(reconcileBody()))
	require.NoError(t, err)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	tests := []struct {
		format      string
		contentType string
	}{
		{"text", "text/plain; charset=utf-8"},
		{"json", "application/json"},
		{"csv", "text/csv"},
	}

	for _, tt := range tests {
		rep, err := http.Get(fmt.Sprintf("%s/api/v1/reconciliations/%s/report?format=%s", srv.URL, created.ID, tt.format))
		require.NoError(t, err)
		rep.Body.Close()
		assert.Equal(t, http.StatusOK, rep.StatusCode, tt.format)
		assert.Equal(t, tt.contentType, rep.Header.Get("Content-Type"), tt.format)
	}

	bad, err := http.Get(srv.URL + "/api/v1/reconciliations/" + created.ID + "/report?format=xml")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestRouterReviewException(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/reconciliations", "application/json", bytes.NewReader(reconcileBody()))
	require.NoError(t, err)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	excResp, err := http.Get(srv.URL + "/api/v1/reconciliations/" + created.ID + "/exceptions")
	require.NoError(t, err)
	defer excResp.Body.Close()
	require.Equal(t, http.StatusOK, excResp.StatusCode)

	var exceptions []struct {
		RecordID string `json:"record_id"`
	}
	require.NoError(t, json.NewDecoder(excResp.Body).Decode(&exceptions))
	require.NotEmpty(t, exceptions)

	recordID := exceptions[0].RecordID
	body := bytes.NewReader([]byte(`{"status": "reviewed"}`))
	req, err := http.NewRequest(http.MethodPatch,
		srv.URL+"/api/v1/reconciliations/"+created.ID+"/exceptions/"+recordID, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	patchResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer patchResp.Body.Close()
	require.Equal(t, http.StatusOK, patchResp.StatusCode)

	var exc struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(patchResp.Body).Decode(&exc))
	assert.Equal(t, "reviewed", exc.Status)

	missing, err := http.Get(srv.URL + "/api/v1/reconciliations/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestRouterRejectsEmptyRequest(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/reconciliations", "application/json",
		bytes.NewReader([]byte(`{"ledger": [], "bank": []}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
