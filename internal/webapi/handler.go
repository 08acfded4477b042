package webapi

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"levelhub/internal/report"
	"levelhub/pkg/fsutil"
	"levelhub/pkg/models"
)

// Handler serves the public catalog endpoints.
type Handler struct {
	Store *CatalogStore
}

func NewHandler(store *CatalogStore) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/catalog", h.catalog)
	rg.GET("/levels", h.list)
	rg.GET("/levels/:id", h.getByID)
	rg.GET("/levels/:id/download", h.download)
	rg.GET("/reports/duplicates", h.duplicatesReport)
	rg.GET("/reports/merge", h.mergeReport)
}

func (h *Handler) catalog(c *gin.Context) {
	idx := h.Store.Index()
	if idx == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no catalog loaded"})
		return
	}
	c.JSON(http.StatusOK, idx)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:      c.Query("q"),
		Source: c.Query("source"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}

	items, total := h.Store.List(q)
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	lvl := h.Store.Get(c.Param("id"))
	if lvl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, lvl)
}

func (h *Handler) download(c *gin.Context) {
	lvl := h.Store.Get(c.Param("id"))
	if lvl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	path := h.Store.PayloadPath(lvl)
	if !fsutil.FileExists(path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "payload missing on disk"})
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

func (h *Handler) duplicatesReport(c *gin.Context) {
	h.serveJSONFile(c, filepath.Join(h.Store.OutDir, report.DuplicateReportsDir, report.DuplicateJSONFilename))
}

func (h *Handler) mergeReport(c *gin.Context) {
	h.serveJSONFile(c, filepath.Join(h.Store.OutDir,
		models.SourceMerged.LevelsDir(), "reports", report.MergeSummaryJSONFilename))
}

func (h *Handler) serveJSONFile(c *gin.Context, path string) {
	if !fsutil.FileExists(path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not generated yet"})
		return
	}
	c.File(path)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
