package models

import "time"

// CatalogIndexFilename is the snapshot file written at the output root
// and inside the merged tree.
const CatalogIndexFilename = "catalog_index.json"

// CatalogIndex is the flat serialized snapshot of every indexed level.
// It is rebuilt per run; there is no incremental update path.
type CatalogIndex struct {
	TotalLevels int                 `json:"totalLevels"`
	Sources     map[LevelSource]int `json:"sources"`
	LastUpdated time.Time           `json:"lastUpdated"`
	Levels      []Level             `json:"levels"`
}

// BySource returns the count for one source bucket (0 when absent).
func (c *CatalogIndex) BySource(s LevelSource) int {
	if c.Sources == nil {
		return 0
	}
	return c.Sources[s]
}

// IndexerResult summarizes one source indexer run. Errors carries one
// message per item-level failure; Success is false only when the run as
// a whole aborted.
type IndexerResult struct {
	RunID           string        `json:"runId"`
	Source          LevelSource   `json:"source"`
	Success         bool          `json:"success"`
	LevelsProcessed int           `json:"levelsProcessed"`
	LevelsSkipped   int           `json:"levelsSkipped"`
	Errors          []string      `json:"errors,omitempty"`
	Duration        time.Duration `json:"duration"`
}
