package webapi

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"levelhub/internal/catalog"
	"levelhub/pkg/fsutil"
	"levelhub/pkg/logging"
	"levelhub/pkg/models"
)

// CatalogStore serves the catalog snapshot to the HTTP layer. The
// catalog is a flat JSON file rebuilt per run, so the store just keeps
// the last loaded snapshot in memory and reloads on demand; there is no
// query engine behind it.
type CatalogStore struct {
	Log    logging.Logger
	OutDir string

	mu  sync.RWMutex
	idx *models.CatalogIndex
}

type ListQuery struct {
	Q      string // keyword search in title/author
	Source string
	Limit  int
	Offset int
}

func NewCatalogStore(log logging.Logger, outDir string) *CatalogStore {
	if log == nil {
		log = logging.Discard
	}
	return &CatalogStore{Log: log, OutDir: outDir}
}

// Reload re-reads the catalog index, preferring the merged tree when
// one exists.
func (s *CatalogStore) Reload() error {
	dir := s.OutDir
	mergedDir := filepath.Join(s.OutDir, models.SourceMerged.LevelsDir())
	if fsutil.FileExists(catalog.IndexPath(mergedDir)) {
		dir = mergedDir
	}

	idx, err := catalog.Load(dir)
	if err != nil {
		return fmt.Errorf("webapi: %w", err)
	}

	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()

	s.Log.Info("catalog loaded", "dir", dir, "levels", idx.TotalLevels)
	return nil
}

// Index returns the current snapshot header (no levels), or nil when
// nothing is loaded yet.
func (s *CatalogStore) Index() *models.CatalogIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil
	}
	return &models.CatalogIndex{
		TotalLevels: s.idx.TotalLevels,
		Sources:     s.idx.Sources,
		LastUpdated: s.idx.LastUpdated,
	}
}

// List filters and pages the snapshot.
func (s *CatalogStore) List(q ListQuery) ([]models.Level, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil, 0
	}

	kw := strings.ToLower(strings.TrimSpace(q.Q))
	src := strings.TrimSpace(q.Source)

	var matched []models.Level
	for _, lvl := range s.idx.Levels {
		if src != "" && string(lvl.Metadata.Source) != src {
			continue
		}
		if kw != "" &&
			!strings.Contains(strings.ToLower(lvl.Metadata.Title), kw) &&
			!strings.Contains(strings.ToLower(lvl.Metadata.Author), kw) {
			continue
		}
		matched = append(matched, lvl)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Metadata.Title < matched[j].Metadata.Title
	})

	total := len(matched)

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []models.Level{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total
}

// Get returns one level by id, or nil.
func (s *CatalogStore) Get(id string) *models.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil
	}
	for i := range s.idx.Levels {
		if s.idx.Levels[i].Metadata.ID == id {
			lvl := s.idx.Levels[i]
			return &lvl
		}
	}
	return nil
}

// PayloadPath resolves a level's primary binary on disk.
func (s *CatalogStore) PayloadPath(lvl *models.Level) string {
	return filepath.Join(s.OutDir, lvl.PrimaryFilePath)
}
