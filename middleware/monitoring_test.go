package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestRouteLabelUsesPathTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MonitorMiddleware)

	var got string
	r.HandleFunc("/api/v1/quests/{instanceID}/progress", func(w http.ResponseWriter, req *http.Request) {
		got = routeLabel(req)
	}).Methods("POST")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quests/7d4c2f1a-0b3e-4c5d-8e9f-a1b2c3d4e5f6/progress", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	// Two requests for different instances must land on the same series.
	if got != "/api/v1/quests/{instanceID}/progress" {
		t.Errorf("route label = %q, want the path template", got)
	}
}

func TestRouteLabelFallsBackToRawPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if got := routeLabel(req); got != "/health" {
		t.Errorf("unrouted label = %q, want /health", got)
	}
}
