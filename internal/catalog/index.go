package catalog

import (
	"fmt"
	"path/filepath"
	"time"

	"levelhub/pkg/fsutil"
	"levelhub/pkg/models"
)

// Build assembles a CatalogIndex from a flat level list: totals,
// per-source counts and lastUpdated (the latest level timestamp; an
// empty catalog keeps the zero time).
func Build(levels []models.Level) *models.CatalogIndex {
	idx := &models.CatalogIndex{
		TotalLevels: len(levels),
		Sources:     make(map[models.LevelSource]int),
		Levels:      levels,
	}

	var last time.Time
	for _, l := range levels {
		idx.Sources[l.Metadata.Source]++
		if l.LastUpdated.After(last) {
			last = l.LastUpdated
		}
		if l.Indexed.After(last) {
			last = l.Indexed
		}
	}
	idx.LastUpdated = last
	return idx
}

// IndexPath returns the catalog index file location under dir.
func IndexPath(dir string) string {
	return filepath.Join(dir, models.CatalogIndexFilename)
}

// Save persists the index atomically as catalog_index.json under dir.
func Save(dir string, idx *models.CatalogIndex) error {
	if err := fsutil.WriteJSONAtomic(IndexPath(dir), idx); err != nil {
		return fmt.Errorf("catalog: save index: %w", err)
	}
	return nil
}

// Load reads catalog_index.json from dir. A missing or unparseable
// index is an error; callers at the start of a merge treat it as fatal.
func Load(dir string) (*models.CatalogIndex, error) {
	var idx models.CatalogIndex
	if err := fsutil.ReadJSON(IndexPath(dir), &idx); err != nil {
		return nil, fmt.Errorf("catalog: load index: %w", err)
	}
	return &idx, nil
}
