package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lijinzhao1998/BaseMoneyPlus/internal/history"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/pipeline"
	"github.com/lijinzhao1998/BaseMoneyPlus/internal/report"
)

// Router exposes the daemon's HTTP surface.
// Endpoints:
//
//	GET  {basePath}/status   daemon uptime plus the last run summary
//	POST {basePath}/run      trigger a report run now; 409 while one is active
//	GET  {basePath}/history  recent run records; query: limit=N
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	pipe     *pipeline.Pipeline
	sink     history.Sink
	basePath string
	started  time.Time
}

// NewRouter constructs a Router. sink may be nil when run persistence is
// disabled; /history then returns 404.
func NewRouter(pipe *pipeline.Pipeline, sink history.Sink, basePath string) *Router {
	return &Router{pipe: pipe, sink: sink, basePath: sanitizeBase(basePath), started: time.Now()}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.POST("/run", r.handleRun)
	if r.sink != nil {
		group.GET("/history", r.handleHistory)
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, pipe *pipeline.Pipeline, sink history.Sink) (*http.Server, error) {
	r := NewRouter(pipe, sink, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type statusResp struct {
	Uptime        string      `json:"uptime"`
	RunInProgress bool        `json:"run_in_progress"`
	LastRun       *report.Run `json:"last_run,omitempty"`
}

func (r *Router) handleStatus(c *gin.Context) {
	resp := statusResp{
		Uptime:        time.Since(r.started).Round(time.Second).String(),
		RunInProgress: r.pipe.InProgress(),
	}
	if last, ok := r.pipe.Last(); ok {
		resp.LastRun = &last
	}
	writeJSON(c, http.StatusOK, resp)
}

func (r *Router) handleRun(c *gin.Context) {
	run, err := r.pipe.Run(c.Request.Context())
	switch {
	case err == pipeline.ErrRunInProgress:
		writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
	case err == pipeline.ErrAllFailed:
		// The run happened and was delivered; report it with its outcome.
		writeJSON(c, http.StatusOK, run)
	case err != nil:
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	default:
		writeJSON(c, http.StatusOK, run)
	}
}

func (r *Router) handleHistory(c *gin.Context) {
	limit := 30
	if s := c.Query("limit"); s != "" {
		n, err := parseLimit(s)
		if err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid limit: " + err.Error()})
			return
		}
		limit = n
	}
	recs, err := r.sink.Recent(c.Request.Context(), limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, recs)
}
