package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(operations.WithLabelValues("buy", "success"))
	RecordOperation("buy", "success", 120*time.Millisecond)
	after := testutil.ToFloat64(operations.WithLabelValues("buy", "success"))

	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", after-before)
	}
}

func TestRecordOperationEmptyOutcome(t *testing.T) {
	before := testutil.ToFloat64(operations.WithLabelValues("sell", "unknown"))
	RecordOperation("sell", "", time.Second)
	if got := testutil.ToFloat64(operations.WithLabelValues("sell", "unknown")); got-before != 1 {
		t.Errorf("Expected empty outcome to be counted as unknown, got delta %v", got-before)
	}
}

func TestRecordSignerFailure(t *testing.T) {
	before := testutil.ToFloat64(signerFailures.WithLabelValues("rejected"))
	RecordSignerFailure("rejected")
	if got := testutil.ToFloat64(signerFailures.WithLabelValues("rejected")); got-before != 1 {
		t.Errorf("Expected counter to increase by 1, got delta %v", got-before)
	}
}

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/v1/transactions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/transactions/{id}", "418"))

	req := httptest.NewRequest(http.MethodGet, "/v1/transactions/abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/v1/transactions/{id}", "418"))
	if after-before != 1 {
		t.Errorf("Expected request counted under route pattern, got delta %v", after-before)
	}
}

func TestHandlerExposesPipelineMetrics(t *testing.T) {
	RecordArtifact("signed-transaction")
	RecordReconciled("confirmed")
	ObserveStage("buy", "sign", 0)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{
		"txpipeline_signer_artifacts_total",
		"txpipeline_reconciler_resolved_total",
		"txpipeline_pipeline_stage_duration_seconds",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected %s in metrics output", name)
		}
	}
}
