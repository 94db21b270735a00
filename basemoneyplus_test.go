package basemoneyplus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/datasource"
)

type staticSource struct{}

func (staticSource) Fetch(ctx context.Context, code string) (*Quote, error) {
	hist := []NavPoint{
		{Date: "2024-03-11", NAV: 1.00},
		{Date: "2024-03-12", NAV: 1.01, ChangeRate: 1.0},
		{Date: "2024-03-13", NAV: 1.02, ChangeRate: 0.99},
		{Date: "2024-03-14", NAV: 1.03, ChangeRate: 0.98},
		{Date: "2024-03-15", NAV: 1.04, ChangeRate: 0.97},
	}
	return &Quote{Code: code, Latest: hist[len(hist)-1], History: hist, IsToday: true}, nil
}

func TestFacadePipelineRun(t *testing.T) {
	holdings := []Holding{{
		Code:      "000001",
		Name:      "A",
		CostBasis: decimal.RequireFromString("1.00"),
		Amount:    decimal.RequireFromString("10000"),
	}}
	p := NewPipeline(staticSource{}, holdings, nil, WithForecastDays(3))

	run, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Outcome != "success" {
		t.Fatalf("outcome = %s", run.Outcome)
	}
	if last, ok := p.Last(); !ok || last.ID != run.ID {
		t.Fatalf("last run mismatch")
	}
	if p.InProgress() {
		t.Fatalf("no run should be in progress")
	}
}

func TestFacadeHistorySink(t *testing.T) {
	sink, err := NewHistorySink(":memory:")
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	defer func() { _ = sink.Close() }()
	if err := sink.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
}

func TestFacadeLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[schedule]\nat = \"09:30\"\n\n[[holdings]]\ncode = \"000001\"\ncost_basis = 1.0\namount = 1000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	fc, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c := fc.Clock(); c.Hour != 9 || c.Minute != 30 {
		t.Fatalf("clock = %+v", c)
	}
}

func TestFacadeControllerAndScheduler(t *testing.T) {
	dir := t.TempDir()
	ctrl := NewController(filepath.Join(dir, "d.pid"), time.Second, nil)
	st, err := ctrl.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != "stopped" {
		t.Fatalf("state = %s", st.State)
	}

	fired := make(chan struct{}, 1)
	s := NewScheduler(Clock{Hour: 0, Minute: 0}, func(ctx context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx) // returns immediately on cancelled context
}

func TestFacadeSentinels(t *testing.T) {
	for _, err := range []error{ErrAlreadyRunning, ErrNotRunning, ErrRunInProgress, ErrDataUnavailable} {
		if err == nil {
			t.Fatalf("sentinel must not be nil")
		}
	}
	if !errors.Is(ErrDataUnavailable, datasource.ErrDataUnavailable) {
		t.Fatalf("alias mismatch")
	}
}
