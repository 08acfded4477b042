package webapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"levelhub/internal/catalog"
	"levelhub/internal/indexer"
	"levelhub/internal/merger"
	"levelhub/internal/progress"
	"levelhub/pkg/database"
	"levelhub/pkg/logging"
	"levelhub/pkg/models"
	"levelhub/pkg/utils"
)

// AdminHandler triggers indexer and merge runs in the background. Only
// one run may be in flight at a time; concurrent triggers get 409.
type AdminHandler struct {
	Log   logging.Logger
	Cfg   *utils.Config
	Hub   *progress.Hub
	Store *CatalogStore
	Seen  *database.SeenStore

	mu   sync.Mutex
	busy bool
}

func NewAdminHandler(log logging.Logger, cfg *utils.Config, hub *progress.Hub, store *CatalogStore, seen *database.SeenStore) *AdminHandler {
	if log == nil {
		log = logging.Discard
	}
	return &AdminHandler{Log: log, Cfg: cfg, Hub: hub, Store: store, Seen: seen}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/index/:source", h.index)
	rg.POST("/merge", h.merge)
}

func (h *AdminHandler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy {
		return false
	}
	h.busy = true
	return true
}

func (h *AdminHandler) release() {
	h.mu.Lock()
	h.busy = false
	h.mu.Unlock()
}

func (h *AdminHandler) index(c *gin.Context) {
	kind := models.LevelSource(c.Param("source"))
	if !kind.Valid() || kind == models.SourceMerged {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
		return
	}

	src, err := indexer.BuildSource(h.Log, nil, h.Cfg, kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.acquire() {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in flight"})
		return
	}

	go func() {
		defer h.release()

		runner := indexer.NewRunner(h.Log, nil, h.Seen, h.Cfg.OutputDir)
		runner.Workers = h.Cfg.Indexer.Workers
		runner.MaxItems = h.Cfg.Indexer.MaxItems
		runner.Notify = h.Hub.Publish

		if _, err := runner.Run(context.Background(), src); err != nil {
			h.Log.Error("background index run failed", "source", kind, "error", err)
			return
		}
		h.rebuildCatalog()
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started", "source": kind})
}

func (h *AdminHandler) merge(c *gin.Context) {
	if !h.acquire() {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in flight"})
		return
	}

	go func() {
		defer h.release()

		h.Hub.Publish(progress.Event{Type: progress.EventMergeStart})

		lm := merger.NewLevelMerger(h.Log)
		result, err := lm.Run(h.Cfg.OutputDir)
		if err != nil {
			h.Log.Error("background merge failed", "error", err)
			h.Hub.Publish(progress.Event{Type: progress.EventMergeDone, Message: err.Error()})
			return
		}

		h.Hub.Publish(progress.Event{
			Type:      progress.EventMergeDone,
			Processed: result.GroupsMerged + result.UniqueCopied,
			Skipped:   result.GroupsSkipped + result.UniqueSkipped,
		})
		if err := h.Store.Reload(); err != nil {
			h.Log.Warn("catalog reload after merge failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// rebuildCatalog rescans the level trees and rewrites the root index
// after an indexing run, then refreshes the serving snapshot.
func (h *AdminHandler) rebuildCatalog() {
	scanner := catalog.NewScanner(h.Log)
	idx, err := scanner.ScanIndex(h.Cfg.OutputDir)
	if err != nil {
		h.Log.Error("catalog rescan failed", "error", err)
		return
	}
	if err := catalog.Save(h.Cfg.OutputDir, idx); err != nil {
		h.Log.Error("catalog save failed", "error", err)
		return
	}
	if err := h.Store.Reload(); err != nil {
		h.Log.Warn("catalog reload failed", "error", err)
	}
}
