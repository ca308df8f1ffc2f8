package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spendwise/internal/certs"
	"github.com/Veraticus/spendwise/internal/ingest"
	"github.com/Veraticus/spendwise/internal/sms"
	"github.com/Veraticus/spendwise/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zomatoDebit = "INR 1,250.00 debited from A/c XX5678 to ZOMATO on 12-03-24. Avl Bal INR 9,000.00"

func newTestServer(t *testing.T) (*Server, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	pipeline := ingest.NewSMSPipeline(db.Storage, ingest.SMSPipelineOptions{
		Dedup: sms.NewDedupCache(time.Minute, 64),
	})
	return New(pipeline, WithAccessLog(io.Discard)), db
}

func doJSON(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	code, body := doJSON(t, s, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_IngestOne(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    int
		wantOutcome string
		wantError   string
	}{
		{
			name:        "bank debit is stored",
			body:        `{"sender":"VM-HDFCBK","body":"` + zomatoDebit + `"}`,
			wantCode:    http.StatusCreated,
			wantOutcome: "stored",
		},
		{
			name:        "non bank sender",
			body:        `{"sender":"+919876543210","body":"` + zomatoDebit + `"}`,
			wantCode:    http.StatusOK,
			wantOutcome: "not_bank",
		},
		{
			name:      "missing sender",
			body:      `{"body":"` + zomatoDebit + `"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "sender is required",
		},
		{
			name:      "missing body",
			body:      `{"sender":"VM-HDFCBK","body":"   "}`,
			wantCode:  http.StatusBadRequest,
			wantError: "body is required",
		},
		{
			name:      "malformed json",
			body:      `{"sender":`,
			wantCode:  http.StatusBadRequest,
			wantError: "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)

			code, body := doJSON(t, s, http.MethodPost, "/api/v1/sms", tt.body)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantOutcome != "" {
				assert.Equal(t, tt.wantOutcome, body["outcome"])
			}
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
		})
	}
}

func TestServer_IngestOneReturnsCategory(t *testing.T) {
	s, db := newTestServer(t)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/sms",
		`{"sender":"VM-HDFCBK","body":"`+zomatoDebit+`","delivered_at":"2024-03-12T09:30:00Z"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Food", body["category"])

	txn, ok := body["transaction"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ZOMATO", txn["merchant"])

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/sms",
		`{"sender":"VM-HDFCBK","body":"`+zomatoDebit+`","delivered_at":"2024-03-12T09:30:00Z"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "duplicate", body["outcome"])

	stored, err := db.Storage.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestServer_IngestBatch(t *testing.T) {
	s, db := newTestServer(t)

	payload := `{"messages":[
		{"sender":"VM-HDFCBK","body":"` + zomatoDebit + `"},
		{"sender":"AX-ICICIB","body":"Rs.300 paid to SWIGGY. Current balance is Rs.2,000.00"},
		{"sender":"VM-HDFCBK","body":"Your available balance is Rs.10000"}
	]}`

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/sms/batch", payload)
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 2, body["stored"], 0)

	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 3)
	last, ok := results[2].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "not_transaction", last["outcome"])

	stored, err := db.Storage.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestServer_IngestBatchRejectsInvalidMessage(t *testing.T) {
	s, db := newTestServer(t)

	payload := `{"messages":[{"sender":"VM-HDFCBK","body":"` + zomatoDebit + `"},{"sender":"VM-HDFCBK"}]}`

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/sms/batch", payload)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "message 1: body is required", body["error"])

	stored, err := db.Storage.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

type failingPipeline struct{}

func (failingPipeline) Handle(context.Context, ingest.Message) (ingest.Result, error) {
	err := errors.New("database is locked")
	return ingest.Result{Outcome: ingest.OutcomeFailed, Err: err}, err
}

func (failingPipeline) HandleBatch(context.Context, []ingest.Message) []ingest.Result {
	return nil
}

func TestServer_PipelineFailure(t *testing.T) {
	s := New(failingPipeline{}, WithAccessLog(io.Discard))

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/sms", `{"sender":"VM-HDFCBK","body":"`+zomatoDebit+`"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "failed", body["outcome"])
	assert.Equal(t, "database is locked", body["error"])
}

func TestServer_ListenStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx, "127.0.0.1:0") }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenTLSStopsOnCancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cert, err := certs.NewFileManager(t.TempDir()).GetOrCreateCertificate()
	require.NoError(t, err)

	s := New(ingest.NewSMSPipeline(db.Storage, ingest.SMSPipelineOptions{}),
		WithAccessLog(io.Discard),
		WithTLS(cert))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx, "127.0.0.1:0") }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
