package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/datasource"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/history"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/pipeline"
)

func init() { gin.SetMode(gin.TestMode) }

type stubSource struct {
	fail bool
	gate chan struct{}
}

func (s *stubSource) Fetch(ctx context.Context, code string) (*datasource.Quote, error) {
	if s.gate != nil {
		<-s.gate
	}
	if s.fail {
		return nil, datasource.ErrDataUnavailable
	}
	hist := make([]datasource.NavPoint, 6)
	nav := 1.00
	for i := range hist {
		hist[i] = datasource.NavPoint{Date: fmt.Sprintf("2024-03-%02d", i+10), NAV: nav, ChangeRate: 1.0}
		nav += 0.01
	}
	return &datasource.Quote{Code: code, Latest: hist[len(hist)-1], History: hist, IsToday: true}, nil
}

type stubSink struct{ recs []history.RunRecord }

func (s *stubSink) EnsureSchema(ctx context.Context) error { return nil }
func (s *stubSink) Append(ctx context.Context, rec history.RunRecord) error {
	s.recs = append(s.recs, rec)
	return nil
}
func (s *stubSink) Recent(ctx context.Context, limit int) ([]history.RunRecord, error) {
	if limit > len(s.recs) {
		limit = len(s.recs)
	}
	return s.recs[:limit], nil
}
func (s *stubSink) Close() error { return nil }

func testPipeline(src datasource.Source, sink history.Sink) *pipeline.Pipeline {
	holdings := []pipeline.Holding{{
		Code:      "000001",
		Name:      "A",
		CostBasis: decimal.RequireFromString("1.00"),
		Amount:    decimal.RequireFromString("10000"),
	}}
	opts := []pipeline.Option{}
	if sink != nil {
		opts = append(opts, pipeline.WithHistory(sink))
	}
	return pipeline.New(src, holdings, nil, opts...)
}

func TestStatusBeforeAnyRun(t *testing.T) {
	r := NewRouter(testPipeline(&stubSource{}, nil), nil, "")
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body statusResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.LastRun != nil || body.RunInProgress {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRunEndpointAndStatusAfter(t *testing.T) {
	sink := &stubSink{}
	r := NewRouter(testPipeline(&stubSource{}, sink), sink, "")
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /run: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status = %d", resp.StatusCode)
	}
	var run map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run["outcome"] != "success" {
		t.Fatalf("outcome = %v", run["outcome"])
	}

	resp2, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var body statusResp
	if err := json.NewDecoder(resp2.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body.LastRun == nil || body.LastRun.ID == "" {
		t.Fatalf("last run missing: %+v", body)
	}

	resp3, err := http.Get(srv.URL + "/history?limit=5")
	if err != nil {
		t.Fatalf("GET /history: %v", err)
	}
	defer func() { _ = resp3.Body.Close() }()
	var recs []history.RunRecord
	if err := json.NewDecoder(resp3.Body).Decode(&recs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(recs) != 1 || recs[0].Outcome != "success" {
		t.Fatalf("history = %+v", recs)
	}
}

func TestRunConflictWhileInProgress(t *testing.T) {
	gate := make(chan struct{})
	pipe := testPipeline(&stubSource{gate: gate}, nil)
	r := NewRouter(pipe, nil, "")
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := http.Post(srv.URL+"/run", "application/json", nil)
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	deadline := time.After(2 * time.Second)
	for !pipe.InProgress() {
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	resp, err := http.Post(srv.URL+"/run", "application/json", nil)
	if err != nil {
		t.Fatalf("second POST /run: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	close(gate)
	<-done
}

func TestRunAllFailedStillOK(t *testing.T) {
	r := NewRouter(testPipeline(&stubSource{fail: true}, nil), nil, "")
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /run: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var run map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run["outcome"] != "failed" {
		t.Fatalf("outcome = %v", run["outcome"])
	}
}

func TestHistoryLimitValidation(t *testing.T) {
	sink := &stubSink{}
	r := NewRouter(testPipeline(&stubSource{}, sink), sink, "/api")
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/history?limit=bogus")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
