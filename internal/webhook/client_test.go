package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anahq/ana/pkg/models"
)

func validPayload() models.AnaWebhookPayload {
	failure := models.NewAnalyzedFailure(models.AnalyzedFailure{
		Type:     models.FailureTypeCI,
		Content:  "Build: webpack exited",
		Priority: models.PriorityCritical,
	})
	results := models.NewAnaResults([]models.AnalyzedFailure{failure}, "Build analysis found 1 issues")
	return models.NewAnaWebhookPayload(results, "987654", 42)
}

func newTestClient(endpoint string, retries int) *Client {
	return &Client{
		endpoint: endpoint,
		config:   Config{Timeout: 5 * time.Second, Retries: retries},
		signer:   NewDevSigner("dev-secret-key"),
		client:   &http.Client{},
	}
}

// --- SendToTod tests ---

func TestSendToTod_Success(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"todosCreated":3,"message":"created"}`))
	}))
	defer server.Close()

	res := newTestClient(server.URL, 2).SendToTod(context.Background(), validPayload())

	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Err)
	}
	if res.Data == nil || !res.Data.Success || res.Data.TodosCreated != 3 {
		t.Errorf("unexpected response data %+v", res.Data)
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}

func TestSendToTod_RetriesServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	res := newTestClient(server.URL, 1).SendToTod(context.Background(), validPayload())

	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Err, "HTTP 500") {
		t.Errorf("expected HTTP 500 in error, got %q", res.Err)
	}
	if n := atomic.LoadInt32(&attempts); n != 2 {
		t.Errorf("expected 2 attempts (1 retry), got %d", n)
	}
}

func TestSendToTod_NoRetryOnClientErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	res := newTestClient(server.URL, 3).SendToTod(context.Background(), validPayload())

	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Err, "HTTP 400") {
		t.Errorf("expected HTTP 400 in error, got %q", res.Err)
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("expected 1 attempt (no retry), got %d", n)
	}
}

func TestSendToTod_RecoversAfterRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	res := newTestClient(server.URL, 2).SendToTod(context.Background(), validPayload())

	if !res.Success {
		t.Fatalf("expected success after retry, got %q", res.Err)
	}
	if n := atomic.LoadInt32(&attempts); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestSendToTod_InvalidPayloadSkipsNetwork(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
	}))
	defer server.Close()

	payload := validPayload()
	payload.Failures[0].Priority = "urgent"

	res := newTestClient(server.URL, 2).SendToTod(context.Background(), payload)

	if res.Success {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(res.Err, "Invalid AnaWebhookPayload data:") {
		t.Errorf("unexpected error %q", res.Err)
	}
	if n := atomic.LoadInt32(&attempts); n != 0 {
		t.Errorf("expected no network traffic, got %d attempts", n)
	}
}

func TestSendToTod_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	res := newTestClient(server.URL, 0).SendToTod(context.Background(), validPayload())

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Err != "Empty response from Tod webhook" {
		t.Errorf("unexpected error %q", res.Err)
	}
}

func TestSendToTod_InvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	res := newTestClient(server.URL, 0).SendToTod(context.Background(), validPayload())

	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Err, "Invalid JSON response from Tod webhook") {
		t.Errorf("unexpected error %q", res.Err)
	}
}

func TestSendToTod_IncludesServerErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"missing summary"}`))
	}))
	defer server.Close()

	res := newTestClient(server.URL, 0).SendToTod(context.Background(), validPayload())

	if !strings.Contains(res.Err, "HTTP 422") || !strings.Contains(res.Err, "missing summary") {
		t.Errorf("expected status and server detail in error, got %q", res.Err)
	}
}

func TestSendToTod_SetsHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, NewDevSigner("dev-secret-key"), Config{
		Headers: map[string]string{"Authorization": "Bearer token-123"},
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	res := client.SendToTod(context.Background(), validPayload())
	if !res.Success {
		t.Fatalf("unexpected failure: %q", res.Err)
	}

	if got.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content type %q", got.Get("Content-Type"))
	}
	if got.Get("User-Agent") != "Ana-Webhook-Client/1.0" {
		t.Errorf("unexpected user agent %q", got.Get("User-Agent"))
	}
	if got.Get("X-Ana-Version") != "1.0.0" {
		t.Errorf("unexpected version header %q", got.Get("X-Ana-Version"))
	}
	if !strings.HasPrefix(got.Get("X-Ana-Signature"), "sha256=dev-") {
		t.Errorf("unexpected signature header %q", got.Get("X-Ana-Signature"))
	}
	if got.Get("X-Ana-Timestamp") == "" {
		t.Error("expected timestamp header")
	}
	if got.Get("Authorization") != "Bearer token-123" {
		t.Errorf("unexpected authorization header %q", got.Get("Authorization"))
	}
}

func TestSendToTod_StopsRetryingOnContextCancel(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		done <- newTestClient(server.URL, 5).SendToTod(ctx, validPayload())
	}()

	// Let the first attempt land, then cancel during the backoff wait.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		if res.Success {
			t.Fatal("expected failure")
		}
		if !strings.Contains(res.Err, "HTTP 500") {
			t.Errorf("expected last attempt error, got %q", res.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not stop after context cancellation")
	}

	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", n)
	}
}

// --- legacy envelope tests ---

func TestSendAnalysisResults(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := jsonDecode(r, &body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"success":true,"todosCreated":1}`))
	}))
	defer server.Close()

	failure := models.NewAnalyzedFailure(models.AnalyzedFailure{
		Type:     models.FailureTypeCI,
		Content:  "Build: webpack exited",
		Priority: models.PriorityCritical,
	})
	results := models.NewAnaResults([]models.AnalyzedFailure{failure}, "Build analysis found 1 issues")

	res := newTestClient(server.URL, 0).SendAnalysisResults(context.Background(), results, "#42")
	if !res.Success {
		t.Fatalf("unexpected failure: %q", res.Err)
	}

	if body["source"] != "ana" {
		t.Errorf("unexpected source %v", body["source"])
	}
	if body["type"] != "analysis_results" {
		t.Errorf("unexpected type %v", body["type"])
	}
	meta, ok := body["metadata"].(map[string]any)
	if !ok || meta["relatedPR"] != "#42" {
		t.Errorf("unexpected metadata %v", body["metadata"])
	}
}

func TestSendSingleFailure_InvalidFailure(t *testing.T) {
	res := newTestClient("http://localhost:0", 0).SendSingleFailure(
		context.Background(), models.AnalyzedFailure{}, "#42")

	if res.Success {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(res.Err, "Invalid AnalyzedFailure data:") {
		t.Errorf("unexpected error %q", res.Err)
	}
}

// --- TestConnection / batch tests ---

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD probe, got %s", r.Method)
		}
	}))
	defer server.Close()

	status, err := newTestClient(server.URL, 0).TestConnection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "connected" {
		t.Errorf("expected connected, got %q", status)
	}
}

func TestTestConnection_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	status, err := newTestClient(server.URL, 0).TestConnection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "error" {
		t.Errorf("expected error status, got %q", status)
	}
}

func TestBatchSendFailures(t *testing.T) {
	var received int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&received, 1)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	failures := make([]models.AnalyzedFailure, 0, 12)
	for i := 0; i < 12; i++ {
		failures = append(failures, models.NewAnalyzedFailure(models.AnalyzedFailure{
			Type:     models.FailureTypeCI,
			Content:  "Build: webpack exited",
			Priority: models.PriorityMedium,
		}))
	}

	result, err := BatchSendFailures(context.Background(), newTestClient(server.URL, 0), failures, "#42", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalSent != 12 {
		t.Errorf("expected 12 sent, got %d", result.TotalSent)
	}
	if n := atomic.LoadInt32(&received); n != 12 {
		t.Errorf("expected 12 requests, got %d", n)
	}
}

func TestBatchSendFailures_ReportsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	failures := []models.AnalyzedFailure{
		models.NewAnalyzedFailure(models.AnalyzedFailure{
			Type:     models.FailureTypeCI,
			Content:  "Build: webpack exited",
			Priority: models.PriorityMedium,
		}),
	}

	result, err := BatchSendFailures(context.Background(), newTestClient(server.URL, 0), failures, "#42", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Failed to send 1 failures") {
		t.Errorf("unexpected error %v", err)
	}
	if result.TotalSent != 0 {
		t.Errorf("expected nothing sent, got %d", result.TotalSent)
	}
}

func TestNewClient_RejectsInvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "not-a-url", "ftp://tod.local/webhook", "http://"} {
		if _, err := NewClient(endpoint, NewDevSigner("s"), Config{}); err == nil {
			t.Errorf("expected error for endpoint %q", endpoint)
		}
	}

	if _, err := NewClient("http://localhost:3001/webhook/ana", NewDevSigner("s"), Config{}); err != nil {
		t.Errorf("unexpected error for valid endpoint: %v", err)
	}
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
