package analyzer

import (
	"time"

	"levelhub/internal/catalog"
	"levelhub/pkg/logging"
	"levelhub/pkg/models"
)

// Analyzer partitions a catalog into duplicate groups by primary-file
// content hash and computes descriptive statistics. It never mutates
// the catalog; it is a pure function of its input plus the weight
// table.
type Analyzer struct {
	Log     logging.Logger
	Weights ScoreWeights
}

func New(log logging.Logger) *Analyzer {
	if log == nil {
		log = logging.Discard
	}
	return &Analyzer{Log: log, Weights: DefaultScoreWeights()}
}

// AnalyzeDir loads the catalog index from outDir and analyzes it.
// Convenience wrapper; the behavioral contract lives in Analyze.
func (a *Analyzer) AnalyzeDir(outDir string) (*models.DuplicateAnalysisReport, error) {
	idx, err := catalog.Load(outDir)
	if err != nil {
		return nil, err
	}
	return a.Analyze(idx), nil
}

// Analyze groups levels by content hash. Levels without a hashed
// primary file cannot be deduplicated: they are warn-logged and counted
// as unique. An empty catalog yields an empty report.
func (a *Analyzer) Analyze(idx *models.CatalogIndex) *models.DuplicateAnalysisReport {
	report := &models.DuplicateAnalysisReport{
		TotalLevels: len(idx.Levels),
		Statistics: models.DuplicateStatistics{
			BySource: make(map[models.LevelSource]models.SourceStats),
		},
		GeneratedAt: time.Now().UTC(),
	}

	// group by hash, preserving first-appearance order of each hash
	byHash := make(map[string][]*models.Level)
	var hashOrder []string

	for i := range idx.Levels {
		lvl := &idx.Levels[i]

		stats := report.Statistics.BySource[lvl.Metadata.Source]
		stats.Total++
		report.Statistics.BySource[lvl.Metadata.Source] = stats

		hash := lvl.ContentHash()
		if hash == "" {
			a.Log.Warn("level has no primary-file hash, treating as unique",
				"level", lvl.Metadata.ID, "source", lvl.Metadata.Source)
			report.UniqueLevels++
			a.bumpUnique(report, lvl.Metadata.Source)
			continue
		}

		if _, ok := byHash[hash]; !ok {
			hashOrder = append(hashOrder, hash)
		}
		byHash[hash] = append(byHash[hash], lvl)
	}

	for _, hash := range hashOrder {
		members := byHash[hash]
		if len(members) < 2 {
			report.UniqueLevels++
			a.bumpUnique(report, members[0].Metadata.Source)
			continue
		}

		group := models.DuplicateGroup{Hash: hash}
		if pf := members[0].PrimaryFile(); pf != nil {
			group.FileSize = pf.Size
		}
		for _, m := range members {
			group.Levels = append(group.Levels, m.Summary())
		}
		report.DuplicateGroups = append(report.DuplicateGroups, group)

		if group.CrossSource() {
			report.Statistics.CrossSourceGroups++
		} else {
			report.Statistics.WithinSourceGroups++
		}
		if group.Size() > report.Statistics.LargestGroupSize {
			report.Statistics.LargestGroupSize = group.Size()
		}

		// per-source attribution: the earliest-uploaded member is the
		// representative; every other member counts as one duplicate
		// against its own source.
		rep := Representative(&group)
		for i, m := range group.Levels {
			if i == rep {
				continue
			}
			stats := report.Statistics.BySource[m.Source]
			stats.Duplicates++
			report.Statistics.BySource[m.Source] = stats
		}
	}

	report.DuplicateCount = report.TotalLevels - report.UniqueLevels - len(report.DuplicateGroups)

	return report
}

func (a *Analyzer) bumpUnique(report *models.DuplicateAnalysisReport, src models.LevelSource) {
	stats := report.Statistics.BySource[src]
	stats.Unique++
	report.Statistics.BySource[src] = stats
}

// Representative returns the index of the group's earliest-uploaded
// member (missing dates sort last, ties keep input order). The merger
// copies the shared payload from this member.
func Representative(group *models.DuplicateGroup) int {
	best := 0
	for i := 1; i < len(group.Levels); i++ {
		if earlier(group.Levels[i].UploadDate, group.Levels[best].UploadDate) {
			best = i
		}
	}
	return best
}

// RecommendBestDuplicate returns the id of the group member with the
// most complete metadata under the analyzer's weight table. Ties break
// by earliest upload date, then by position in the group's level list.
func (a *Analyzer) RecommendBestDuplicate(group *models.DuplicateGroup) string {
	if len(group.Levels) == 0 {
		return ""
	}

	best := 0
	bestScore := a.Weights.Score(group.Levels[0].Metadata)

	for i := 1; i < len(group.Levels); i++ {
		score := a.Weights.Score(group.Levels[i].Metadata)
		switch {
		case score > bestScore:
			best, bestScore = i, score
		case score == bestScore:
			if earlier(group.Levels[i].UploadDate, group.Levels[best].UploadDate) {
				best = i
			}
		}
	}

	return group.Levels[best].ID
}
