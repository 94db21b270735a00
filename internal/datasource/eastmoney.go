package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHistoryURL  = "http://api.fund.eastmoney.com/f10/lsjz"
	defaultEstimateURL = "http://fundgz.1234567.com.cn/js"
	defaultLookback    = 30
	userAgent          = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Eastmoney fetches fund NAV series from the Eastmoney fund APIs: the f10/lsjz
// endpoint for daily history and the fundgz realtime estimate as a best-effort
// source for the fund name. Both endpoints answer with JSONP-wrapped JSON.
type Eastmoney struct {
	client      *http.Client
	historyURL  string
	estimateURL string
	lookback    int

	// now is swappable for tests.
	now func() time.Time
}

// Option configures an Eastmoney source.
type Option func(*Eastmoney)

// WithHistoryURL overrides the history endpoint (tests).
func WithHistoryURL(u string) Option { return func(e *Eastmoney) { e.historyURL = u } }

// WithEstimateURL overrides the realtime estimate endpoint (tests).
func WithEstimateURL(u string) Option { return func(e *Eastmoney) { e.estimateURL = u } }

// WithClient overrides the HTTP client.
func WithClient(c *http.Client) Option { return func(e *Eastmoney) { e.client = c } }

// NewEastmoney builds a source keeping lookback days of history per fetch.
func NewEastmoney(lookback int, opts ...Option) *Eastmoney {
	if lookback <= 0 {
		lookback = defaultLookback
	}
	e := &Eastmoney{
		client:      &http.Client{Timeout: 10 * time.Second},
		historyURL:  defaultHistoryURL,
		estimateURL: defaultEstimateURL,
		lookback:    lookback,
		now:         time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// lsjz payload; the API reports NAV and change rate as strings.
type lsjzResponse struct {
	Data struct {
		LSJZList []struct {
			FSRQ  string `json:"FSRQ"`  // date
			DWJZ  string `json:"DWJZ"`  // unit NAV
			JZZZL string `json:"JZZZL"` // daily change percent
		} `json:"LSJZList"`
	} `json:"Data"`
}

type estimateResponse struct {
	Name   string `json:"name"`
	Gsz    string `json:"gsz"`    // estimated NAV
	Gszzl  string `json:"gszzl"`  // estimated change percent
	Gztime string `json:"gztime"` // estimate timestamp
}

// Fetch returns the latest NAV and recent history for code. Any network or
// parse failure, and an empty history, map to ErrDataUnavailable.
func (e *Eastmoney) Fetch(ctx context.Context, code string) (*Quote, error) {
	history, err := e.fetchHistory(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: fund %s: %v", ErrDataUnavailable, code, err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: fund %s: empty history", ErrDataUnavailable, code)
	}
	latest := history[len(history)-1]
	q := &Quote{
		Code:    code,
		Latest:  latest,
		History: history,
		IsToday: latest.Date == e.now().Format("2006-01-02"),
	}
	// Fund name comes from the estimate endpoint; losing it is not fatal.
	if est, err := e.fetchEstimate(ctx, code); err == nil {
		q.Name = est.Name
	}
	return q, nil
}

func (e *Eastmoney) fetchHistory(ctx context.Context, code string) ([]NavPoint, error) {
	end := e.now()
	start := end.AddDate(0, 0, -e.lookback)

	params := url.Values{}
	params.Set("fundCode", code)
	params.Set("pageIndex", "1")
	params.Set("pageSize", strconv.Itoa(e.lookback))
	params.Set("startDate", start.Format("2006-01-02"))
	params.Set("endDate", end.Format("2006-01-02"))
	params.Set("_", strconv.FormatInt(end.UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.historyURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", fmt.Sprintf("http://fund.eastmoney.com/%s.html", code))

	body, err := e.do(req)
	if err != nil {
		return nil, err
	}

	var resp lsjzResponse
	if err := json.Unmarshal(stripJSONP(body), &resp); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	// The API returns newest first; flip to chronological order.
	list := resp.Data.LSJZList
	points := make([]NavPoint, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		item := list[i]
		nav, err := strconv.ParseFloat(item.DWJZ, 64)
		if err != nil {
			continue // skip rows without a published NAV
		}
		change, _ := strconv.ParseFloat(item.JZZZL, 64)
		points = append(points, NavPoint{Date: item.FSRQ, NAV: nav, ChangeRate: change})
	}
	return points, nil
}

func (e *Eastmoney) fetchEstimate(ctx context.Context, code string) (*estimateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s.js", strings.TrimRight(e.estimateURL, "/"), code), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	body, err := e.do(req)
	if err != nil {
		return nil, err
	}
	var est estimateResponse
	if err := json.Unmarshal(stripJSONP(body), &est); err != nil {
		return nil, fmt.Errorf("decode estimate: %w", err)
	}
	return &est, nil
}

func (e *Eastmoney) do(req *http.Request) ([]byte, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// stripJSONP unwraps "callback({...})" payloads; plain JSON passes through.
func stripJSONP(b []byte) []byte {
	s := string(b)
	start := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if start == -1 || end == -1 || end <= start {
		return b
	}
	// Only unwrap when the prefix looks like a callback, not a JSON value.
	head := strings.TrimSpace(s[:start])
	if strings.ContainsAny(head, "{}[]\"") {
		return b
	}
	return []byte(s[start+1 : end])
}
