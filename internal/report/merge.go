package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"levelhub/pkg/fsutil"
	"levelhub/pkg/models"
)

const (
	// MergeSummaryJSONFilename and MergeSummaryMDFilename live under
	// levels-merged/reports/.
	MergeSummaryJSONFilename = "merge-summary.json"
	MergeSummaryMDFilename   = "merge-summary.md"

	// MergeInfoFilename is the provenance note written into each
	// merged level directory.
	MergeInfoFilename = "MERGE_INFO.md"
)

// mergeSummaryFile is the wire shape of merge-summary.json.
type mergeSummaryFile struct {
	GeneratedAt time.Time                  `json:"generatedAt"`
	Summary     mergeSummaryCounts         `json:"summary"`
	BeforeMerge map[models.LevelSource]int `json:"beforeMerge"`
	AfterMerge  map[models.LevelSource]int `json:"afterMerge"`
}

type mergeSummaryCounts struct {
	GroupsMerged     int     `json:"groupsMerged"`
	GroupsSkipped    int     `json:"groupsSkipped"`
	UniqueCopied     int     `json:"uniqueCopied"`
	UniqueSkipped    int     `json:"uniqueSkipped"`
	TotalLevels      int     `json:"totalLevels"`
	SpaceSavedBytes  int64   `json:"spaceSavedBytes"`
	ReductionPercent float64 `json:"reductionPercent"`
}

// WriteMergeSummary persists the machine-readable merge-summary.json
// and the human-readable merge-summary.md into dir.
func WriteMergeSummary(dir string, r *models.MergeResult) error {
	file := mergeSummaryFile{
		GeneratedAt: r.GeneratedAt,
		Summary: mergeSummaryCounts{
			GroupsMerged:     r.GroupsMerged,
			GroupsSkipped:    r.GroupsSkipped,
			UniqueCopied:     r.UniqueCopied,
			UniqueSkipped:    r.UniqueSkipped,
			TotalLevels:      r.TotalLevels,
			SpaceSavedBytes:  r.SpaceSavedBytes,
			ReductionPercent: r.ReductionPercent(),
		},
		BeforeMerge: r.BeforeMerge,
		AfterMerge:  r.AfterMerge,
	}

	if err := fsutil.WriteJSONAtomic(filepath.Join(dir, MergeSummaryJSONFilename), file); err != nil {
		return fmt.Errorf("report: write merge summary json: %w", err)
	}
	md := RenderMergeSummaryMD(r)
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, MergeSummaryMDFilename), []byte(md), 0o644); err != nil {
		return fmt.Errorf("report: write merge summary md: %w", err)
	}
	return nil
}

// RenderMergeSummaryMD renders the merge result as markdown.
func RenderMergeSummaryMD(r *models.MergeResult) string {
	var b strings.Builder

	b.WriteString("# Merge summary\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))
	if r.DryRun {
		b.WriteString("**Dry run** — no files were written.\n\n")
	}

	fmt.Fprintf(&b, "- Groups merged: %d\n", r.GroupsMerged)
	fmt.Fprintf(&b, "- Groups skipped: %d\n", r.GroupsSkipped)
	fmt.Fprintf(&b, "- Unique levels copied: %d\n", r.UniqueCopied)
	fmt.Fprintf(&b, "- Unique levels skipped: %d\n", r.UniqueSkipped)
	fmt.Fprintf(&b, "- Levels after merge: %d\n", r.TotalLevels)
	fmt.Fprintf(&b, "- Space saved: %d bytes\n", r.SpaceSavedBytes)
	fmt.Fprintf(&b, "- Reduction: %.1f%%\n\n", r.ReductionPercent())

	b.WriteString("| source | before | after |\n|---|---|---|\n")
	for _, src := range sortedCountSources(r.BeforeMerge, r.AfterMerge) {
		fmt.Fprintf(&b, "| %s | %d | %d |\n", src, r.BeforeMerge[src], r.AfterMerge[src])
	}

	return b.String()
}

func sortedCountSources(maps ...map[models.LevelSource]int) []models.LevelSource {
	seen := make(map[models.LevelSource]bool)
	var out []models.LevelSource
	for _, m := range maps {
		for src := range m {
			if !seen[src] {
				seen[src] = true
				out = append(out, src)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RenderMergeInfo builds the human-readable provenance note stored
// beside each merged level, naming every contributor and where the
// chosen fields came from.
func RenderMergeInfo(meta *models.MergedMetadata, group *models.DuplicateGroup, payloadFrom string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	fmt.Fprintf(&b, "Merged record `%s` built from %d identical uploads (content hash `%s`).\n\n",
		meta.ID, len(group.Levels), group.Hash)

	b.WriteString("## Contributors\n\n")
	for _, m := range group.Levels {
		date := "unknown date"
		if m.UploadDate != nil {
			date = m.UploadDate.Format("2006-01-02")
		}
		marker := ""
		if m.ID == payloadFrom {
			marker = " (payload source)"
		}
		fmt.Fprintf(&b, "- `%s` from %s, uploaded %s: %q by %s%s\n",
			m.ID, m.Source, date, m.Title, orDash(m.Author), marker)
	}

	b.WriteString("\n## Selected metadata\n\n")
	fmt.Fprintf(&b, "- Title: %s\n", meta.Title)
	fmt.Fprintf(&b, "- Author: %s\n", meta.Author)
	if meta.Description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", meta.Description)
	}
	if meta.AuthorNotes != "" {
		fmt.Fprintf(&b, "- Author notes (from a secondary source): %s\n", meta.AuthorNotes)
	}
	if meta.PostedDate != nil {
		fmt.Fprintf(&b, "- Posted: %s\n", meta.PostedDate.Format("2006-01-02"))
	}
	if len(meta.Tags) > 0 {
		fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(meta.Tags, ", "))
	}

	if len(meta.Sources) > 0 {
		b.WriteString("\n## Source links\n\n")
		for _, src := range sortedRefSources(meta.Sources) {
			ref := meta.Sources[src]
			if ref.URL != "" {
				fmt.Fprintf(&b, "- %s: %s\n", src, ref.URL)
			} else {
				fmt.Fprintf(&b, "- %s\n", src)
			}
		}
	}

	return b.String()
}

func sortedRefSources(m map[models.LevelSource]models.SourceRef) []models.LevelSource {
	out := make([]models.LevelSource, 0, len(m))
	for src := range m {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
