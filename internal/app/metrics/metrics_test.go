package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesMetrics(t *testing.T) {
	RecordTicketSold()
	RecordTransition("open")
	RecordPayout("prize")
	SetEscrowHeld(20)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", rec.Code)
	}
	body := rec.Body.String()
	for _, metric := range []string{
		"raffle_engine_tickets_sold_total",
		"raffle_engine_rounds_transitions_total",
		"raffle_engine_escrow_payouts_total",
		"raffle_engine_escrow_held_units",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}

func TestInstrumentHandler(t *testing.T) {
	handler := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/raffle", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("instrumented handler returned %d", rec.Code)
	}

	// The instrumented request shows up on the scrape endpoint.
	scrape := httptest.NewRecorder()
	Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(scrape.Body.String(), `raffle_engine_http_requests_total{method="GET",path="/raffle",status="418"}`) {
		t.Error("scrape output missing instrumented request counter")
	}
}
