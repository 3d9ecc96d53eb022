package recognizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/RiRi-380/Lipsynctool-beta/internal/metrics"
)

func TestHintsParsesAlignedPhonemes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		if got := r.FormValue("transcript"); got != "こん" {
			t.Errorf("expected transcript こん, got %q", got)
		}
		if got := r.FormValue("use_gpu"); got != "true" {
			t.Errorf("expected use_gpu true, got %q", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("expected audio file in request: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer auth, got %q", got)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"rms_value": 0.25,
			"phonemes": []map[string]interface{}{
				{"surface": "こ", "phoneme": "ko", "start": 0.0, "end": 0.4, "confidence": 0.9},
				{"surface": "ん", "phoneme": "n", "start": 0.4, "end": 0.6, "confidence": 0.8},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "secret", UseGPU: true}, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	hints, err := client.Hints(context.Background(), []byte("RIFF..."), "こん")
	if err != nil {
		t.Fatalf("Hints failed: %v", err)
	}
	if len(hints) != 2 {
		t.Fatalf("expected 2 hints, got %d", len(hints))
	}
	if hints[0].Label != "ko" || hints[0].Start != 0.0 || hints[0].End != 0.4 {
		t.Errorf("unexpected first hint: %+v", hints[0])
	}
	if hints[1].Surface != "ん" || hints[1].Confidence != 0.8 {
		t.Errorf("unexpected second hint: %+v", hints[1])
	}

	stats := client.GetStats()
	if stats.SuccessRequests != 1 || stats.FailedRequests != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHintsRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "temporary", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"phonemes": []interface{}{}})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, MaxRetries: 2}, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	if _, err := client.Hints(context.Background(), []byte("x"), "あ"); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
	if stats := client.GetStats(); stats.TotalRetries != 1 {
		t.Errorf("expected 1 retry recorded, got %d", stats.TotalRetries)
	}
}

func TestHintsDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad transcript", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, MaxRetries: 3}, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	if _, err := client.Hints(context.Background(), []byte("x"), "あ"); err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 request for a non-retryable error, got %d", got)
	}
}

func TestHintsHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, MaxRetries: 0}, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.Hints(ctx, []byte("x"), "あ"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestHintsRecordsAlignmentMetrics(t *testing.T) {
	m := metrics.NewMetrics()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "temporary", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"phonemes": []interface{}{}})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, MaxRetries: 2}, m)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.Close()

	if _, err := client.Hints(context.Background(), []byte("x"), "あ"); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if got := testutil.ToFloat64(m.AlignmentRequests); got != 1 {
		t.Errorf("expected 1 alignment request recorded, got %f", got)
	}
	if got := testutil.ToFloat64(m.AlignmentRetries); got != 1 {
		t.Errorf("expected 1 alignment retry recorded, got %f", got)
	}
	if got := testutil.ToFloat64(m.AlignmentSuccesses); got != 1 {
		t.Errorf("expected 1 alignment success recorded, got %f", got)
	}

	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad transcript", http.StatusBadRequest)
	}))
	defer badServer.Close()

	badClient, err := NewClient(Config{Endpoint: badServer.URL}, m)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer badClient.Close()

	if _, err := badClient.Hints(context.Background(), []byte("x"), "あ"); err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if got := testutil.ToFloat64(m.AlignmentFailures); got != 1 {
		t.Errorf("expected 1 alignment failure recorded, got %f", got)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}, nil); err == nil {
		t.Error("expected error for empty endpoint")
	}
	if _, err := NewClient(Config{Endpoint: "http://x", Timeout: -time.Second}, nil); err == nil {
		t.Error("expected error for negative timeout")
	}
}
