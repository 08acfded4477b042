package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"levelhub/pkg/fsutil"
	"levelhub/pkg/logging"
	"levelhub/pkg/models"
)

// LevelCatalogFilename is the per-level record written by indexers into
// each level directory.
const LevelCatalogFilename = "catalog.json"

// Scanner flattens the per-source level trees under an output root into
// one flat level list.
type Scanner struct {
	Log logging.Logger
}

func NewScanner(log logging.Logger) *Scanner {
	if log == nil {
		log = logging.Discard
	}
	return &Scanner{Log: log}
}

// Scan walks every known per-source levels directory under outDir and
// loads each <levelID>/catalog.json. Missing source directories are
// fine (that source just has not been indexed). Unreadable or invalid
// entries are warn-logged and skipped, never fatal.
func (s *Scanner) Scan(outDir string) ([]models.Level, error) {
	var all []models.Level

	for _, src := range models.IndexedSources {
		dir := filepath.Join(outDir, src.LevelsDir())
		levels, err := s.scanSourceDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("catalog: scan %s: %w", dir, err)
		}
		all = append(all, levels...)
	}

	return all, nil
}

func (s *Scanner) scanSourceDir(dir string) ([]models.Level, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	// stable order independent of readdir order
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var levels []models.Level
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name(), LevelCatalogFilename)

		var lvl models.Level
		if err := fsutil.ReadJSON(path, &lvl); err != nil {
			s.Log.Warn("skipping unreadable level record", "path", path, "error", err)
			continue
		}
		if lvl.Metadata.ID == "" {
			s.Log.Warn("skipping level record without id", "path", path)
			continue
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}

// ScanIndex scans outDir and builds the full CatalogIndex in one step.
func (s *Scanner) ScanIndex(outDir string) (*models.CatalogIndex, error) {
	levels, err := s.Scan(outDir)
	if err != nil {
		return nil, err
	}
	return Build(levels), nil
}
