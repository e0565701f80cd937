package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haeun/pagewatch/internal/visit"
)

// Router provides embeddable HTTP handlers for driving the visit timer from
// a host application (a page frontend posting its navigations, or an
// operator poking at the collector).
// Endpoints:
//
//	POST {basePath}/track   body: {"page_name": "...", "page_url": "..."}
//	POST {basePath}/stop    finalizes the in-flight visit and returns it
//	GET  {basePath}/status  returns the in-flight visit without finalizing
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	timer    *visit.Timer
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/pagewatch" results in /pagewatch/track etc.
func NewRouter(t *visit.Timer, basePath string) *Router {
	return &Router{timer: t, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/track", r.handleTrack)
	group.POST("/stop", r.handleStop)
	group.GET("/status", r.handleStatus)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, t *visit.Timer) (*http.Server, error) {
	r := NewRouter(t, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type statusResp struct {
	Timing bool          `json:"timing"`
	Visit  *visit.Record `json:"visit,omitempty"`
}

type trackReq struct {
	PageName string `json:"page_name"`
	PageURL  string `json:"page_url"`
}

func (r *Router) handleTrack(c *gin.Context) {
	var req trackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.PageName == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "page_name required"})
		return
	}
	// The timer itself never fails toward its caller; a degraded store or
	// sink shows up in the diagnostic log, not here.
	r.timer.TrackPreviousPageVisit(req.PageName, req.PageURL)
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	rec := r.timer.Stop()
	if rec == nil {
		writeJSON(c, http.StatusOK, statusResp{Timing: false})
		return
	}
	writeJSON(c, http.StatusOK, statusResp{Timing: false, Visit: rec})
}

func (r *Router) handleStatus(c *gin.Context) {
	rec := r.timer.Current()
	writeJSON(c, http.StatusOK, statusResp{Timing: rec != nil, Visit: rec})
}
