// Package server exposes the scan pipeline over HTTP. The transport is
// deliberately thin: it validates input, invokes the pipeline and
// returns summaries. Internal error detail is logged server-side only;
// callers see one generic failure message.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/guard"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/store"
)

// ScanRunner executes one scan request end to end.
type ScanRunner func(ctx context.Context, req engine.ScanRequest) (*engine.ScanResult, error)

// genericFailure is the only error body callers ever see for internal
// faults. Which upstream source failed is never distinguished.
const genericFailure = "scan failed"

// Server wires the HTTP routes to the store and the pipeline.
type Server struct {
	store *store.SQLite
	run   ScanRunner
	log   *slog.Logger
}

// New creates a server around a store and a scan runner.
func New(st *store.SQLite, run ScanRunner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: st, run: run, log: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/scans", s.createScan)
	api.GET("/scans/:id", s.getScan)
	api.GET("/scans/:id/subdomains", s.getSubdomains)
	api.POST("/scans/:id/stop", s.stopScan)

	return r
}

type createScanRequest struct {
	TargetDomain string          `json:"target_domain" binding:"required"`
	Options      *engine.Options `json:"options"`
}

type createScanResponse struct {
	ScanID  string             `json:"scan_id"`
	Summary engine.ScanSummary `json:"summary"`
}

// createScan runs a scan synchronously and returns its summary.
// Validation failures are the caller's fault and carry their reason;
// everything else collapses to the generic failure body.
func (s *Server) createScan(c *gin.Context) {
	var body createScanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_domain is required"})
		return
	}

	if err := guard.Validate(body.TargetDomain); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := engine.DefaultOptions()
	if body.Options != nil {
		opts = *body.Options
	}

	req := engine.ScanRequest{
		ScanID:       uuid.NewString(),
		TargetDomain: body.TargetDomain,
		Options:      opts,
	}

	if err := s.store.CreateScan(c.Request.Context(), req); err != nil {
		s.log.Error("create scan row", "scan_id", req.ScanID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}

	result, err := s.run(c.Request.Context(), req)
	if err != nil {
		s.log.Error("scan failed", "scan_id", req.ScanID, "target", req.TargetDomain, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}

	c.JSON(http.StatusOK, createScanResponse{ScanID: req.ScanID, Summary: result.Summary})
}

func (s *Server) getScan(c *gin.Context) {
	sc, err := s.store.GetScan(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	if err != nil {
		s.log.Error("get scan", "scan_id", c.Param("id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}
	// The stored failure detail stays internal.
	sc.Failure = ""
	c.JSON(http.StatusOK, sc)
}

func (s *Server) getSubdomains(c *gin.Context) {
	recs, err := s.store.GetRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.log.Error("get records", "scan_id", c.Param("id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subdomains": recs})
}

// stopScan flips the persisted stop flag. Probes already in flight run
// to completion or timeout; only new persistence is prevented.
func (s *Server) stopScan(c *gin.Context) {
	err := s.store.RequestStop(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found or already finished"})
		return
	}
	if err != nil {
		s.log.Error("stop scan", "scan_id", c.Param("id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": store.StateStopped})
}
