package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"levelhub/pkg/fsutil"
	"levelhub/pkg/models"
)

// DuplicateReportsDir is created under the output root.
const DuplicateReportsDir = "duplicate-reports"

// DuplicateJSONFilename holds the serialized analysis report.
const DuplicateJSONFilename = "duplicates.json"

// WriteDuplicateJSON persists the analysis report under
// <outDir>/duplicate-reports/duplicates.json.
func WriteDuplicateJSON(outDir string, r *models.DuplicateAnalysisReport) (string, error) {
	path := filepath.Join(outDir, DuplicateReportsDir, DuplicateJSONFilename)
	if err := fsutil.WriteJSONAtomic(path, r); err != nil {
		return "", fmt.Errorf("report: write duplicates json: %w", err)
	}
	return path, nil
}

// RenderAnalysisConsole renders the report as aligned plain text.
// details adds one block per duplicate group.
func RenderAnalysisConsole(r *models.DuplicateAnalysisReport, details bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Duplicate analysis (%s)\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "  total levels:      %d\n", r.TotalLevels)
	fmt.Fprintf(&b, "  unique levels:     %d\n", r.UniqueLevels)
	fmt.Fprintf(&b, "  duplicate groups:  %d\n", len(r.DuplicateGroups))
	fmt.Fprintf(&b, "  extra copies:      %d\n", r.DuplicateCount)
	fmt.Fprintf(&b, "  cross-source:      %d\n", r.Statistics.CrossSourceGroups)
	fmt.Fprintf(&b, "  within-source:     %d\n", r.Statistics.WithinSourceGroups)
	fmt.Fprintf(&b, "  largest group:     %d\n", r.Statistics.LargestGroupSize)

	if len(r.Statistics.BySource) > 0 {
		b.WriteString("\nPer source:\n")
		fmt.Fprintf(&b, "  %-22s %8s %8s %11s\n", "source", "total", "unique", "duplicates")
		for _, src := range sortedSources(r.Statistics.BySource) {
			s := r.Statistics.BySource[src]
			fmt.Fprintf(&b, "  %-22s %8d %8d %11d\n", src, s.Total, s.Unique, s.Duplicates)
		}
	}

	if details && len(r.DuplicateGroups) > 0 {
		b.WriteString("\nGroups:\n")
		for _, g := range r.DuplicateGroups {
			fmt.Fprintf(&b, "  %s (%d members, %d bytes)\n", g.Hash, g.Size(), g.FileSize)
			for _, m := range g.Levels {
				date := "-"
				if m.UploadDate != nil {
					date = m.UploadDate.Format("2006-01-02")
				}
				fmt.Fprintf(&b, "    %-22s %-20s %-10s %s by %s\n",
					m.ID, m.Source, date, orDash(m.Title), orDash(m.Author))
			}
		}
	}

	return b.String()
}

func sortedSources(m map[models.LevelSource]models.SourceStats) []models.LevelSource {
	out := make([]models.LevelSource, 0, len(m))
	for src := range m {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
