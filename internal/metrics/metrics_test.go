// v0
// internal/metrics/metrics_test.go
package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func findSample(t *testing.T, exposition, prefix string) bool {
	t.Helper()
	for _, line := range strings.Split(exposition, "\n") {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func TestObserveAppendCountsByKindAndResult(t *testing.T) {
	ObserveAppend("ROLLBACK", "signature")
	ObserveAppend("ROLLBACK", "signature")
	out := scrape(t)
	if !findSample(t, out, `modelmarket_ledger_append_total{kind="ROLLBACK",result="signature"} 2`) {
		t.Fatalf("expected two rejected ROLLBACK appends in:\n%s", out)
	}
}

func TestGaugesClampNegativeValues(t *testing.T) {
	SetChainLength(-5)
	SetPublicQueueDepth(-1)
	SetPublicLastError(time.Time{})
	out := scrape(t)
	for _, sample := range []string{
		"modelmarket_ledger_chain_length 0",
		"modelmarket_public_queue_depth 0",
		"modelmarket_public_last_error_ts 0",
	} {
		if !findSample(t, out, sample) {
			t.Fatalf("expected %q in exposition", sample)
		}
	}
}

func TestWrapHandlerCountsRoutes(t *testing.T) {
	ObserveVerify(5*time.Millisecond, true)
	IncIntent("", "applied")

	wrapped := WrapHandler("/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil))

	out := scrape(t)
	for _, sample := range []string{
		`modelmarket_http_requests_total{route="/teapot",status="418"} 1`,
		`modelmarket_ingest_intents_total{result="applied",type="unknown"}`,
		`modelmarket_ledger_verify_total{result="valid"}`,
	} {
		if !findSample(t, out, sample) {
			t.Fatalf("expected %q in exposition", sample)
		}
	}
}
