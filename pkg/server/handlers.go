package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/japaniel/cognates/pkg/cognates"
	"github.com/japaniel/cognates/pkg/db"
	"github.com/japaniel/cognates/pkg/search"
)

// Version is set at build time using ldflags.
var Version = "dev"

type handlers struct {
	deps   Dependencies
	logger *slog.Logger
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	// Status is the graph store's HTTP status for upstream failures.
	Status int           `json:"status,omitempty"`
	State  *search.State `json:"state,omitempty"`
}

// health handles GET /health
func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "cognates",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// resume handles GET /api/v1/cognates. Query parameters are merged with
// the current search; a different search is submitted, the same one only
// changes page.
func (h *handlers) resume(c *gin.Context) {
	st, err := h.deps.Session.Resume(c.Request.Context(), c.Request.URL.Query())
	h.respond(c, st, err)
}

// submit handles POST /api/v1/cognates.
func (h *handlers) submit(c *gin.Context) {
	var p search.Params
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	st, err := h.deps.Session.Submit(c.Request.Context(), p)
	h.respond(c, st, err)
}

// state handles GET /api/v1/state
func (h *handlers) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Session.State())
}

type pageRequest struct {
	Page int `json:"page" binding:"required"`
}

// setPage handles PUT /api/v1/state/page
func (h *handlers) setPage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	st, err := h.deps.Session.SetPage(req.Page)
	h.respond(c, st, err)
}

// history handles GET /api/v1/history
func (h *handlers) history(c *gin.Context) {
	if h.deps.DB == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "history is not available"})
		return
	}
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive number"})
			return
		}
		limit = n
	}
	records, err := db.RecentSearches(h.deps.DB, limit)
	if err != nil {
		h.logger.Error("failed to read history", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read history"})
		return
	}
	if records == nil {
		records = []db.SearchRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"searches": records})
}

// definition handles GET /api/v1/definition
func (h *handlers) definition(c *gin.Context) {
	if h.deps.Definitions == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "definitions are not available"})
		return
	}
	word := strings.TrimSpace(c.Query("word"))
	lang := strings.TrimSpace(c.Query("lang"))
	if word == "" || lang == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "word and lang are required"})
		return
	}
	html, err := h.deps.Definitions.DefinitionHTML(c.Request.Context(), word, lang)
	if err != nil {
		h.respondError(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"word": word, "lang": lang, "html": html})
}

// suggest handles GET /api/v1/suggest
func (h *handlers) suggest(c *gin.Context) {
	if h.deps.Suggestions == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "suggestions are not available"})
		return
	}
	suggestions, err := h.deps.Suggestions.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.logger.Warn("suggest failed", "q", c.Query("q"), "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (h *handlers) respond(c *gin.Context, st *search.State, err error) {
	if err != nil {
		h.respondError(c, st, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handlers) respondError(c *gin.Context, st *search.State, err error) {
	if ce, ok := cognates.AsCognateError(err); ok {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: ce.Message, Status: ce.Status, State: st})
		return
	}
	switch {
	case errors.Is(err, search.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrInvalidParams),
		errors.Is(err, cognates.ErrEmptyWord),
		errors.Is(err, cognates.ErrInvalidLang):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), State: st})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), State: st})
	}
}
