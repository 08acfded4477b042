package merger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelhub/internal/catalog"
	"levelhub/internal/report"
	"levelhub/pkg/fsutil"
	"levelhub/pkg/models"
)

const dupHash = "aabbccddeeff0011"

func fixtureLevel(id string, source models.LevelSource, hash string, size int64) models.Level {
	relDir := filepath.Join(source.LevelsDir(), id)
	return models.Level{
		Metadata: models.LevelMetadata{
			ID:     id,
			Title:  "Level " + id,
			Author: "Digger Dan",
			Source: source,
		},
		Files: []models.LevelFile{{
			Filename: id + ".dat",
			Path:     id + ".dat",
			Size:     size,
			Hash:     hash,
			FileType: models.FilePrimaryBinary,
		}},
		CatalogPath:     filepath.Join(relDir, catalog.LevelCatalogFilename),
		PrimaryFilePath: filepath.Join(relDir, id+".dat"),
		Indexed:         time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
		LastUpdated:     time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func writeLevelFiles(t *testing.T, outDir string, lvl models.Level, payload string) {
	t.Helper()
	dir := filepath.Dir(filepath.Join(outDir, lvl.CatalogPath))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range lvl.Files {
		content := payload
		if f.FileType != models.FilePrimaryBinary {
			content = "img"
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.Path), []byte(content), 0o644))
	}
	require.NoError(t, fsutil.WriteJSONAtomic(filepath.Join(outDir, lvl.CatalogPath), &lvl))
}

// fixtureTree lays out one duplicate pair (archive + community copies of
// the same payload) and one unique archive level, index included.
func fixtureTree(t *testing.T) (outDir string, levels []models.Level) {
	t.Helper()
	outDir = t.TempDir()

	archDup := fixtureLevel("arch-1", models.SourceArchive, dupHash, 9)
	archDup.Metadata.Description = "The canonical archive copy with a proper description attached."
	archDup.Files = append(archDup.Files, models.LevelFile{
		Filename: "shot.png",
		Path:     "shot.png",
		Size:     3,
		FileType: models.FileScreenshot,
	})

	chatDup := fixtureLevel("disc-1", models.SourceChatCommunity, dupHash, 9)
	unique := fixtureLevel("arch-2", models.SourceArchive, "1122334455667788", 5)

	writeLevelFiles(t, outDir, archDup, "PAYLOAD-A")
	writeLevelFiles(t, outDir, chatDup, "PAYLOAD-A")
	writeLevelFiles(t, outDir, unique, "OTHER")

	levels = []models.Level{archDup, chatDup, unique}
	require.NoError(t, catalog.Save(outDir, catalog.Build(levels)))
	return outDir, levels
}

func TestRun_MergesGroupAndCopiesUnique(t *testing.T) {
	outDir, _ := fixtureTree(t)

	result, err := NewLevelMerger(nil).Run(outDir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.GroupsMerged)
	assert.Equal(t, 0, result.GroupsSkipped)
	assert.Equal(t, 1, result.UniqueCopied)
	assert.Equal(t, 2, result.TotalLevels)
	assert.Equal(t, int64(9), result.SpaceSavedBytes)
	assert.Equal(t, 3, result.BeforeMerge[models.SourceArchive]+result.BeforeMerge[models.SourceChatCommunity])

	mergedDir := filepath.Join(outDir, "levels-merged")
	mergedID := MergedID(dupHash)
	groupDir := filepath.Join(mergedDir, mergedID)

	// one payload copy, the representative's screenshot and a
	// provenance note beside the record
	assert.True(t, fsutil.FileExists(filepath.Join(groupDir, "arch-1.dat")))
	assert.True(t, fsutil.FileExists(filepath.Join(groupDir, "shot.png")))
	assert.True(t, fsutil.FileExists(filepath.Join(groupDir, report.MergeInfoFilename)))

	var record models.MergedLevel
	require.NoError(t, fsutil.ReadJSON(filepath.Join(groupDir, catalog.LevelCatalogFilename), &record))
	assert.Equal(t, mergedID, record.Metadata.ID)
	assert.Equal(t, models.SourceMerged, record.Metadata.Source)
	assert.ElementsMatch(t, []string{"arch-1", "disc-1"}, record.Metadata.MergedFrom)
	assert.Contains(t, record.Metadata.Sources, models.SourceArchive)
	assert.Contains(t, record.Metadata.Sources, models.SourceChatCommunity)

	// unique level passes through with its source intact
	var passthrough models.Level
	uniqueDir := filepath.Join(mergedDir, "arch-2")
	require.NoError(t, fsutil.ReadJSON(filepath.Join(uniqueDir, catalog.LevelCatalogFilename), &passthrough))
	assert.Equal(t, models.SourceArchive, passthrough.Metadata.Source)
	assert.True(t, fsutil.FileExists(filepath.Join(uniqueDir, "arch-2.dat")))

	idx, err := catalog.Load(mergedDir)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.TotalLevels)
	assert.Equal(t, 1, idx.Sources[models.SourceMerged])
	assert.Equal(t, 1, idx.Sources[models.SourceArchive])

	assert.True(t, fsutil.FileExists(filepath.Join(mergedDir, "reports", report.MergeSummaryJSONFilename)))
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	outDir, _ := fixtureTree(t)

	lm := NewLevelMerger(nil)
	lm.DryRun = true
	result, err := lm.Run(outDir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.GroupsMerged)
	assert.Equal(t, 1, result.UniqueCopied)
	assert.Equal(t, 2, result.TotalLevels)
	assert.True(t, result.DryRun)

	_, err = os.Stat(filepath.Join(outDir, "levels-merged"))
	assert.True(t, os.IsNotExist(err), "dry run must not create the merged tree")
}

func TestRun_MissingPayloadSkipsOnlyThatLevel(t *testing.T) {
	outDir, levels := fixtureTree(t)

	// break the unique level's payload; the duplicate group still merges
	unique := levels[2]
	require.NoError(t, os.Remove(filepath.Join(outDir, unique.PrimaryFilePath)))

	result, err := NewLevelMerger(nil).Run(outDir)
	require.NoError(t, err)

	assert.Equal(t, 1, result.GroupsMerged)
	assert.Equal(t, 0, result.UniqueCopied)
	assert.Equal(t, 1, result.UniqueSkipped)
	assert.Equal(t, 1, result.TotalLevels)
}

func TestRun_MissingRepresentativePayloadSkipsGroup(t *testing.T) {
	outDir, levels := fixtureTree(t)

	// the representative copy is gone, so the group cannot
	// materialize its payload
	require.NoError(t, os.Remove(filepath.Join(outDir, levels[0].PrimaryFilePath)))

	result, err := NewLevelMerger(nil).Run(outDir)
	require.NoError(t, err)

	assert.Equal(t, 0, result.GroupsMerged)
	assert.Equal(t, 1, result.GroupsSkipped)
	assert.Equal(t, 1, result.UniqueCopied)
	assert.Equal(t, 1, result.TotalLevels)
}

func TestRun_Idempotent(t *testing.T) {
	outDir, _ := fixtureTree(t)

	lm := NewLevelMerger(nil)
	first, err := lm.Run(outDir)
	require.NoError(t, err)

	recordPath := filepath.Join(outDir, "levels-merged", MergedID(dupHash), catalog.LevelCatalogFilename)
	before, err := os.ReadFile(recordPath)
	require.NoError(t, err)

	second, err := lm.Run(outDir)
	require.NoError(t, err)

	assert.Equal(t, first.GroupsMerged, second.GroupsMerged)
	assert.Equal(t, first.TotalLevels, second.TotalLevels)
	assert.Equal(t, first.SpaceSavedBytes, second.SpaceSavedBytes)

	after, err := os.ReadFile(recordPath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "re-running an unchanged merge must reproduce the record")
}

func TestRun_MissingIndexIsFatal(t *testing.T) {
	_, err := NewLevelMerger(nil).Run(t.TempDir())
	require.Error(t, err)
}

func TestReductionPercent(t *testing.T) {
	r := models.MergeResult{
		TotalLevels: 2,
		BeforeMerge: map[models.LevelSource]int{
			models.SourceArchive:       2,
			models.SourceChatCommunity: 1,
		},
	}
	assert.InDelta(t, 33.33, r.ReductionPercent(), 0.01)
}
