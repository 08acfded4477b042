package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelhub/pkg/fsutil"
	"levelhub/pkg/models"
)

func sampleReport() *models.DuplicateAnalysisReport {
	uploaded := time.Date(2023, 5, 20, 0, 0, 0, 0, time.UTC)
	return &models.DuplicateAnalysisReport{
		TotalLevels:    3,
		UniqueLevels:   1,
		DuplicateCount: 1,
		DuplicateGroups: []models.DuplicateGroup{{
			Hash:     "aabbccddeeff0011",
			FileSize: 2048,
			Levels: []models.LevelSummary{
				{ID: "archive-a", Title: "Cool Cave", Author: "Digger Dan",
					Source: models.SourceArchive, UploadDate: &uploaded},
				{ID: "discord-b", Source: models.SourceChatCommunity},
			},
		}},
		Statistics: models.DuplicateStatistics{
			CrossSourceGroups: 1,
			LargestGroupSize:  2,
			BySource: map[models.LevelSource]models.SourceStats{
				models.SourceArchive:       {Total: 2, Unique: 1},
				models.SourceChatCommunity: {Total: 1, Duplicates: 1},
			},
		},
		GeneratedAt: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteDuplicateJSON(t *testing.T) {
	outDir := t.TempDir()

	path, err := WriteDuplicateJSON(outDir, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, DuplicateReportsDir, DuplicateJSONFilename), path)

	var loaded models.DuplicateAnalysisReport
	require.NoError(t, fsutil.ReadJSON(path, &loaded))
	assert.Equal(t, 3, loaded.TotalLevels)
	require.Len(t, loaded.DuplicateGroups, 1)
	assert.Equal(t, "aabbccddeeff0011", loaded.DuplicateGroups[0].Hash)
}

func TestRenderAnalysisConsole(t *testing.T) {
	out := RenderAnalysisConsole(sampleReport(), false)

	assert.Contains(t, out, "total levels:      3")
	assert.Contains(t, out, "unique levels:     1")
	assert.Contains(t, out, "cross-source:      1")
	assert.Contains(t, out, "chat-community")
	assert.NotContains(t, out, "Groups:")
}

func TestRenderAnalysisConsole_Details(t *testing.T) {
	out := RenderAnalysisConsole(sampleReport(), true)

	assert.Contains(t, out, "Groups:")
	assert.Contains(t, out, "aabbccddeeff0011")
	assert.Contains(t, out, "archive-a")
	assert.Contains(t, out, "2023-05-20")
	// members without metadata render dashes instead of blanks
	assert.Contains(t, out, "-")
}

func TestWriteDuplicateHTML(t *testing.T) {
	outDir := t.TempDir()

	path, err := WriteDuplicateHTML(outDir, sampleReport())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(raw)
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Cool Cave")
	assert.Contains(t, html, "aabbccddeeff0011")
}

func sampleMergeResult() *models.MergeResult {
	return &models.MergeResult{
		GroupsMerged:    1,
		UniqueCopied:    1,
		TotalLevels:     2,
		SpaceSavedBytes: 2048,
		BeforeMerge: map[models.LevelSource]int{
			models.SourceArchive:       2,
			models.SourceChatCommunity: 1,
		},
		AfterMerge: map[models.LevelSource]int{
			models.SourceMerged:  1,
			models.SourceArchive: 1,
		},
		GeneratedAt: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteMergeSummary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteMergeSummary(dir, sampleMergeResult()))

	var file struct {
		GeneratedAt time.Time `json:"generatedAt"`
		Summary     struct {
			GroupsMerged     int     `json:"groupsMerged"`
			TotalLevels      int     `json:"totalLevels"`
			SpaceSavedBytes  int64   `json:"spaceSavedBytes"`
			ReductionPercent float64 `json:"reductionPercent"`
		} `json:"summary"`
		BeforeMerge map[string]int `json:"beforeMerge"`
	}
	require.NoError(t, fsutil.ReadJSON(filepath.Join(dir, MergeSummaryJSONFilename), &file))

	assert.Equal(t, 1, file.Summary.GroupsMerged)
	assert.Equal(t, 2, file.Summary.TotalLevels)
	assert.Equal(t, int64(2048), file.Summary.SpaceSavedBytes)
	assert.InDelta(t, 33.33, file.Summary.ReductionPercent, 0.01)
	assert.Equal(t, 2, file.BeforeMerge["archive"])

	md, err := os.ReadFile(filepath.Join(dir, MergeSummaryMDFilename))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Merge summary")
	assert.Contains(t, string(md), "| archive | 2 | 1 |")
}

func TestRenderMergeSummaryMD_DryRun(t *testing.T) {
	r := sampleMergeResult()
	r.DryRun = true
	assert.Contains(t, RenderMergeSummaryMD(r), "Dry run")
}

func TestRenderMergeInfo(t *testing.T) {
	rep := sampleReport()
	group := &rep.DuplicateGroups[0]

	posted := time.Date(2023, 5, 20, 0, 0, 0, 0, time.UTC)
	meta := &models.MergedMetadata{
		LevelMetadata: models.LevelMetadata{
			ID:          "merged-aabbccddeeff",
			Title:       "Cool Cave",
			Author:      "Digger Dan",
			Description: "A cave.",
			PostedDate:  &posted,
			Tags:        []string{"caves", "hard"},
			Source:      models.SourceMerged,
		},
		Sources: map[models.LevelSource]models.SourceRef{
			models.SourceArchive:       {URL: "https://archive.org/details/cool-cave"},
			models.SourceChatCommunity: {},
		},
		MergedFrom: []string{"archive-a", "discord-b"},
	}

	out := RenderMergeInfo(meta, group, "archive-a")

	assert.Contains(t, out, "# Cool Cave")
	assert.Contains(t, out, "built from 2 identical uploads")
	assert.Contains(t, out, "`archive-a` from archive")
	assert.Contains(t, out, "(payload source)")
	assert.Contains(t, out, "- Tags: caves, hard")
	assert.Contains(t, out, "https://archive.org/details/cool-cave")
	assert.NotContains(t, out, "Author notes")
}
