package models

import "time"

// LevelSummary is the lightweight per-member view kept inside a
// DuplicateGroup. UploadDate mirrors Metadata.PostedDate so report
// consumers do not need to dig into the full metadata.
type LevelSummary struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Author     string        `json:"author"`
	Source     LevelSource   `json:"source"`
	UploadDate *time.Time    `json:"uploadDate,omitempty"`
	Metadata   LevelMetadata `json:"metadata"`
}

// DuplicateGroup is one content-hash bucket with at least two members.
// All members share Hash; FileSize is the byte size of the shared
// primary binary.
type DuplicateGroup struct {
	Hash     string         `json:"hash"`
	FileSize int64          `json:"fileSize"`
	Levels   []LevelSummary `json:"levels"`
}

// Size returns the number of members in the group.
func (g *DuplicateGroup) Size() int { return len(g.Levels) }

// CrossSource reports whether the group spans more than one source.
func (g *DuplicateGroup) CrossSource() bool {
	if len(g.Levels) == 0 {
		return false
	}
	first := g.Levels[0].Source
	for _, m := range g.Levels[1:] {
		if m.Source != first {
			return true
		}
	}
	return false
}

// SourceStats is the per-source breakdown inside an analysis report.
// Duplicates counts "extra copies": for each group, every member except
// the representative is attributed to its own source.
type SourceStats struct {
	Total      int `json:"total"`
	Unique     int `json:"unique"`
	Duplicates int `json:"duplicates"`
}

// DuplicateStatistics summarizes one catalog scan.
type DuplicateStatistics struct {
	CrossSourceGroups  int                         `json:"crossSourceGroups"`
	WithinSourceGroups int                         `json:"withinSourceGroups"`
	LargestGroupSize   int                         `json:"largestGroupSize"`
	BySource           map[LevelSource]SourceStats `json:"bySource"`
}

// DuplicateAnalysisReport is the output of one full catalog scan.
//
// Invariant: UniqueLevels + sum of group sizes == TotalLevels, and
// DuplicateCount == TotalLevels - UniqueLevels - len(DuplicateGroups).
type DuplicateAnalysisReport struct {
	TotalLevels     int                 `json:"totalLevels"`
	UniqueLevels    int                 `json:"uniqueLevels"`
	DuplicateCount  int                 `json:"duplicateCount"`
	DuplicateGroups []DuplicateGroup    `json:"duplicateGroups"`
	Statistics      DuplicateStatistics `json:"statistics"`
	GeneratedAt     time.Time           `json:"generatedAt"`
}

// SourceRef records where one contributor of a merged level lived.
// Only the identifier fields that apply to the source kind are set.
type SourceRef struct {
	URL        string     `json:"url,omitempty"`
	UploadDate *time.Time `json:"uploadDate,omitempty"`
	ItemID     string     `json:"itemId,omitempty"`
	ChannelID  string     `json:"channelId,omitempty"`
	MessageID  string     `json:"messageId,omitempty"`
	ReleaseTag string     `json:"releaseTag,omitempty"`
}

// MergedMetadata extends LevelMetadata with provenance for a merged
// level. Created once per duplicate group and immutable afterwards.
type MergedMetadata struct {
	LevelMetadata
	AuthorNotes string                    `json:"authorNotes,omitempty"`
	Sources     map[LevelSource]SourceRef `json:"sources"`
	MergedFrom  []string                  `json:"mergedFrom"`
}

// MergedLevel is the per-level record persisted for a merged level. It
// mirrors Level but carries the full MergedMetadata, provenance
// included. The merged catalog index keeps the plain Level shape.
type MergedLevel struct {
	Metadata        MergedMetadata `json:"metadata"`
	Files           []LevelFile    `json:"files"`
	CatalogPath     string         `json:"catalogPath"`
	PrimaryFilePath string         `json:"primaryFilePath"`
	Indexed         time.Time      `json:"indexed"`
	LastUpdated     time.Time      `json:"lastUpdated"`
}

// MergeResult summarizes one merge run over a whole catalog.
type MergeResult struct {
	GroupsMerged    int                 `json:"groupsMerged"`
	GroupsSkipped   int                 `json:"groupsSkipped"`
	UniqueCopied    int                 `json:"uniqueCopied"`
	UniqueSkipped   int                 `json:"uniqueSkipped"`
	TotalLevels     int                 `json:"totalLevels"`
	SpaceSavedBytes int64               `json:"spaceSavedBytes"`
	BeforeMerge     map[LevelSource]int `json:"beforeMerge"`
	AfterMerge      map[LevelSource]int `json:"afterMerge"`
	OutputDir       string              `json:"outputDir"`
	DryRun          bool                `json:"dryRun,omitempty"`
	GeneratedAt     time.Time           `json:"generatedAt"`
}

// ReductionPercent returns the share of levels eliminated by the merge,
// in percent of the pre-merge total.
func (r *MergeResult) ReductionPercent() float64 {
	before := 0
	for _, n := range r.BeforeMerge {
		before += n
	}
	if before == 0 {
		return 0
	}
	return float64(before-r.TotalLevels) / float64(before) * 100
}
