package merger

import (
	"fmt"
	"path/filepath"
	"time"

	"levelhub/internal/analyzer"
	"levelhub/internal/catalog"
	"levelhub/internal/report"
	"levelhub/pkg/fsutil"
	"levelhub/pkg/logging"
	"levelhub/pkg/models"
)

// LevelMerger runs the whole pipeline over one output tree: analyze,
// merge every duplicate group, copy unique levels through, rebuild the
// catalog index under levels-merged and emit the merge reports.
//
// Groups are processed sequentially; each group's file copies must land
// before its catalog record counts. A failing group is dropped from the
// merged output and the run continues.
type LevelMerger struct {
	Log      logging.Logger
	Analyzer *analyzer.Analyzer
	Meta     *MetadataMerger
	DryRun   bool
}

func NewLevelMerger(log logging.Logger) *LevelMerger {
	if log == nil {
		log = logging.Discard
	}
	return &LevelMerger{
		Log:      log,
		Analyzer: analyzer.New(log),
		Meta:     NewMetadataMerger(log),
	}
}

// Run merges the catalog under outDir. A missing or unparseable
// catalog index is fatal; everything past that point degrades per item.
func (lm *LevelMerger) Run(outDir string) (*models.MergeResult, error) {
	idx, err := catalog.Load(outDir)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	dupReport := lm.Analyzer.Analyze(idx)
	mergedDir := filepath.Join(outDir, models.SourceMerged.LevelsDir())

	result := &models.MergeResult{
		BeforeMerge: make(map[models.LevelSource]int),
		AfterMerge:  make(map[models.LevelSource]int),
		OutputDir:   mergedDir,
		DryRun:      lm.DryRun,
		GeneratedAt: time.Now().UTC(),
	}
	for src, n := range idx.Sources {
		result.BeforeMerge[src] = n
	}

	byID := make(map[string]*models.Level, len(idx.Levels))
	for i := range idx.Levels {
		byID[idx.Levels[i].Metadata.ID] = &idx.Levels[i]
	}

	grouped := make(map[string]bool)
	var mergedLevels []models.Level

	for gi := range dupReport.DuplicateGroups {
		group := &dupReport.DuplicateGroups[gi]
		for _, member := range group.Levels {
			grouped[member.ID] = true
		}

		lvl, err := lm.mergeGroup(outDir, mergedDir, group, byID)
		if err != nil {
			lm.Log.Error("merge group failed, dropping group",
				"hash", group.Hash, "members", len(group.Levels), "error", err)
			result.GroupsSkipped++
			continue
		}

		mergedLevels = append(mergedLevels, *lvl)
		result.GroupsMerged++
		result.SpaceSavedBytes += int64(group.Size()-1) * group.FileSize
	}

	for i := range idx.Levels {
		lvl := &idx.Levels[i]
		if grouped[lvl.Metadata.ID] {
			continue
		}

		copied, err := lm.copyUnique(outDir, mergedDir, lvl)
		if err != nil {
			lm.Log.Error("copy unique level failed, skipping",
				"level", lvl.Metadata.ID, "error", err)
			result.UniqueSkipped++
			continue
		}
		mergedLevels = append(mergedLevels, *copied)
		result.UniqueCopied++
	}

	mergedIdx := catalog.Build(mergedLevels)
	result.TotalLevels = mergedIdx.TotalLevels
	for src, n := range mergedIdx.Sources {
		result.AfterMerge[src] = n
	}

	if !lm.DryRun {
		if err := catalog.Save(mergedDir, mergedIdx); err != nil {
			return nil, fmt.Errorf("merge: persist merged catalog: %w", err)
		}
		if err := report.WriteMergeSummary(filepath.Join(mergedDir, "reports"), result); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
	}

	lm.Log.Success("merge complete",
		"groupsMerged", result.GroupsMerged,
		"groupsSkipped", result.GroupsSkipped,
		"uniqueCopied", result.UniqueCopied,
		"uniqueSkipped", result.UniqueSkipped,
		"spaceSavedBytes", result.SpaceSavedBytes,
		"dryRun", lm.DryRun)

	return result, nil
}

// mergeGroup materializes one merged level: payload copied once from
// the representative member, images carried along, catalog.json and a
// provenance note written beside them.
func (lm *LevelMerger) mergeGroup(outDir, mergedDir string, group *models.DuplicateGroup, byID map[string]*models.Level) (*models.Level, error) {
	meta := lm.Meta.Merge(group)

	rep := group.Levels[analyzer.Representative(group)]
	repLevel, ok := byID[rep.ID]
	if !ok {
		return nil, fmt.Errorf("representative %s missing from catalog", rep.ID)
	}
	primary := repLevel.PrimaryFile()
	if primary == nil {
		return nil, fmt.Errorf("representative %s has no primary file", rep.ID)
	}

	relDir := filepath.Join(models.SourceMerged.LevelsDir(), meta.ID)
	destDir := filepath.Join(mergedDir, meta.ID)
	repDir := memberDir(outDir, repLevel)

	payloadSrc := filepath.Join(repDir, primary.Path)
	if !fsutil.FileExists(payloadSrc) {
		return nil, fmt.Errorf("payload %s missing on disk", payloadSrc)
	}

	files := []models.LevelFile{{
		Filename: primary.Filename,
		Path:     primary.Filename,
		Size:     group.FileSize,
		Hash:     group.Hash,
		FileType: models.FilePrimaryBinary,
	}}

	if !lm.DryRun {
		if _, err := fsutil.CopyFile(payloadSrc, filepath.Join(destDir, primary.Filename)); err != nil {
			return nil, fmt.Errorf("copy payload: %w", err)
		}
	}

	// carry the representative's images along when present on disk
	for _, f := range repLevel.Files {
		if f.FileType != models.FileScreenshot && f.FileType != models.FileThumbnail {
			continue
		}
		if lm.DryRun {
			if fsutil.FileExists(filepath.Join(repDir, f.Path)) {
				files = append(files, models.LevelFile{
					Filename: f.Filename, Path: f.Filename, Size: f.Size, FileType: f.FileType,
				})
			}
			continue
		}
		copied, err := fsutil.CopyFileIfExists(filepath.Join(repDir, f.Path), filepath.Join(destDir, f.Filename))
		if err != nil {
			lm.Log.Warn("copy image failed", "level", meta.ID, "file", f.Filename, "error", err)
			continue
		}
		if copied {
			files = append(files, models.LevelFile{
				Filename: f.Filename, Path: f.Filename, Size: f.Size, FileType: f.FileType,
			})
		}
	}

	lvl := &models.Level{
		Metadata:        meta.LevelMetadata,
		Files:           files,
		CatalogPath:     filepath.Join(relDir, catalog.LevelCatalogFilename),
		PrimaryFilePath: filepath.Join(relDir, primary.Filename),
	}
	lvl.Indexed, lvl.LastUpdated = groupTimestamps(group, byID)

	if !lm.DryRun {
		record := models.MergedLevel{
			Metadata:        meta,
			Files:           lvl.Files,
			CatalogPath:     lvl.CatalogPath,
			PrimaryFilePath: lvl.PrimaryFilePath,
			Indexed:         lvl.Indexed,
			LastUpdated:     lvl.LastUpdated,
		}
		if err := fsutil.WriteJSONAtomic(filepath.Join(destDir, catalog.LevelCatalogFilename), record); err != nil {
			return nil, fmt.Errorf("write merged record: %w", err)
		}
		note := report.RenderMergeInfo(&meta, group, rep.ID)
		if err := fsutil.WriteFileAtomic(filepath.Join(destDir, report.MergeInfoFilename), []byte(note), 0o644); err != nil {
			return nil, fmt.Errorf("write provenance note: %w", err)
		}
	}

	return lvl, nil
}

// copyUnique re-emits a non-duplicated level unchanged into the merged
// tree. Metadata and source stay as-is; only the paths move.
func (lm *LevelMerger) copyUnique(outDir, mergedDir string, src *models.Level) (*models.Level, error) {
	id := src.Metadata.ID
	relDir := filepath.Join(models.SourceMerged.LevelsDir(), id)
	destDir := filepath.Join(mergedDir, id)
	srcDir := memberDir(outDir, src)

	out := *src
	out.Files = nil
	out.CatalogPath = filepath.Join(relDir, catalog.LevelCatalogFilename)
	out.PrimaryFilePath = ""

	for _, f := range src.Files {
		from := filepath.Join(srcDir, f.Path)
		to := filepath.Join(destDir, f.Filename)

		if f.FileType == models.FilePrimaryBinary {
			if !fsutil.FileExists(from) {
				return nil, fmt.Errorf("payload %s missing on disk", from)
			}
			if !lm.DryRun {
				if _, err := fsutil.CopyFile(from, to); err != nil {
					return nil, fmt.Errorf("copy payload: %w", err)
				}
			}
			out.PrimaryFilePath = filepath.Join(relDir, f.Filename)
		} else if !lm.DryRun {
			if copied, err := fsutil.CopyFileIfExists(from, to); err != nil || !copied {
				if err != nil {
					lm.Log.Warn("copy file failed", "level", id, "file", f.Filename, "error", err)
				}
				continue
			}
		}

		nf := f
		nf.Path = f.Filename
		out.Files = append(out.Files, nf)
	}

	if out.PrimaryFilePath == "" {
		return nil, fmt.Errorf("level %s has no primary file", id)
	}

	if !lm.DryRun {
		if err := fsutil.WriteJSONAtomic(filepath.Join(destDir, catalog.LevelCatalogFilename), &out); err != nil {
			return nil, fmt.Errorf("write level record: %w", err)
		}
	}

	return &out, nil
}

// memberDir resolves a level's directory on disk. Catalog paths are
// stored relative to the output root.
func memberDir(outDir string, lvl *models.Level) string {
	return filepath.Dir(filepath.Join(outDir, lvl.CatalogPath))
}

// groupTimestamps derives deterministic timestamps for a merged level:
// earliest member Indexed, latest member LastUpdated. Re-runs over an
// unchanged catalog reproduce them byte for byte.
func groupTimestamps(group *models.DuplicateGroup, byID map[string]*models.Level) (indexed, updated time.Time) {
	for _, member := range group.Levels {
		lvl, ok := byID[member.ID]
		if !ok {
			continue
		}
		if indexed.IsZero() || lvl.Indexed.Before(indexed) {
			indexed = lvl.Indexed
		}
		if lvl.LastUpdated.After(updated) {
			updated = lvl.LastUpdated
		}
	}
	return indexed, updated
}
