package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ado-pulse/internal/azdo"
	"ado-pulse/internal/dataset"
	"ado-pulse/internal/engine"
)

type stubFetcher struct {
	workItems   []json.RawMessage
	testResults []json.RawMessage
	err         error
}

func (f *stubFetcher) FetchWorkItems(ctx context.Context, spec azdo.QuerySpec) ([]json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.workItems, nil
}

func (f *stubFetcher) FetchTestResults(ctx context.Context, spec azdo.QuerySpec) ([]json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.testResults, nil
}

func newTestServer(fetcher azdo.Fetcher) *Server {
	store := dataset.NewStore()
	eng := engine.New(fetcher, store, engine.Options{Tag: "hack"})
	return NewServer(eng, ":0")
}

func bugRaw(id int) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"id": id,
		"fields": map[string]any{
			"System.Title":        "Login fails",
			"System.State":        "Active",
			"System.WorkItemType": "Bug",
			"System.Tags":         "hack",
		},
	})
	return raw
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleRefreshAndSummary(t *testing.T) {
	srv := newTestServer(&stubFetcher{workItems: []json.RawMessage{bugRaw(1), bugRaw(2)}})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result engine.RefreshResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("bad refresh body: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 0 {
		t.Errorf("refresh result = %+v, want 2 succeeded", result)
	}

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/api/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var payload struct {
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad summary body: %v", err)
	}
	if payload.Summary.Total != 2 {
		t.Errorf("summary total = %d, want 2", payload.Summary.Total)
	}
}

func TestHandleRefresh_TransportFailure(t *testing.T) {
	srv := newTestServer(&stubFetcher{err: &azdo.TransportError{Status: 503, Message: "down"}})

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for upstream failure", rec.Code)
	}
}

func TestHandleRefresh_SingleFlight(t *testing.T) {
	srv := newTestServer(&stubFetcher{})

	// While one refresh holds the guard, a second request is turned away
	// instead of queueing behind it.
	srv.refreshMu.Lock()
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/refresh")
	srv.refreshMu.Unlock()

	if rec.Code != http.StatusConflict {
		t.Errorf("concurrent refresh status = %d, want 409", rec.Code)
	}

	rec = doRequest(t, srv.Handler(), http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusOK {
		t.Errorf("refresh after guard released = %d, want 200", rec.Code)
	}
}

func TestHandleTrend_Validation(t *testing.T) {
	srv := newTestServer(&stubFetcher{})

	tests := []struct {
		target string
		want   int
	}{
		{"/api/trend", http.StatusOK},
		{"/api/trend?days=7", http.StatusOK},
		{"/api/trend?days=0", http.StatusBadRequest},
		{"/api/trend?days=9999", http.StatusBadRequest},
		{"/api/trend?days=abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		rec := doRequest(t, srv.Handler(), http.MethodGet, tt.target)
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.want)
		}
	}
}

func TestHandleTrend_BucketCount(t *testing.T) {
	srv := newTestServer(&stubFetcher{})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/trend?days=14")
	var series struct {
		Points []any `json:"points"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &series); err != nil {
		t.Fatalf("bad trend body: %v", err)
	}
	if len(series.Points) != 14 {
		t.Errorf("got %d buckets, want 14", len(series.Points))
	}
}

func TestHandleSearch(t *testing.T) {
	srv := newTestServer(&stubFetcher{workItems: []json.RawMessage{bugRaw(1)}})
	doRequest(t, srv.Handler(), http.MethodPost, "/api/refresh")

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/search?type=Bug&text=login")
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad search body: %v", err)
	}
	if payload.Count != 1 {
		t.Errorf("search count = %d, want 1", payload.Count)
	}

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/api/search?state=Resolved")
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	if payload.Count != 0 {
		t.Errorf("search for Resolved = %d, want 0", payload.Count)
	}
}

func TestHandleRaw(t *testing.T) {
	srv := newTestServer(&stubFetcher{workItems: []json.RawMessage{bugRaw(7)}})
	doRequest(t, srv.Handler(), http.MethodPost, "/api/refresh")

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/items/7/raw")
	if rec.Code != http.StatusOK {
		t.Fatalf("raw status = %d", rec.Code)
	}
	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("raw body is not the original JSON: %v", err)
	}

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/api/items/999/raw")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/api/items/7/raw?kind=test_result")
	if rec.Code != http.StatusNotFound {
		t.Errorf("kind-scoped miss status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv.Handler(), http.MethodGet, "/api/items/7/raw?kind=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&stubFetcher{})

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	var payload struct {
		Status       string `json:"status"`
		DatasetEmpty bool   `json:"datasetEmpty"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad health body: %v", err)
	}
	if payload.Status != "ok" || !payload.DatasetEmpty {
		t.Errorf("health = %+v", payload)
	}
}
