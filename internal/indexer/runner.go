package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"levelhub/internal/catalog"
	"levelhub/internal/progress"
	"levelhub/pkg/database"
	"levelhub/pkg/fsutil"
	"levelhub/pkg/hashutil"
	"levelhub/pkg/logging"
	"levelhub/pkg/models"
)

// Runner executes one source indexer run: discover uploads, skip
// already-seen ids, download payloads with a bounded worker pool, hash
// them, write level directories and mark progress in the seen store.
type Runner struct {
	Log       logging.Logger
	HTTP      *HTTPClient
	Seen      *database.SeenStore
	OutputDir string
	Workers   int
	MaxItems  int // 0 = unlimited
	Notify    func(progress.Event)

	zipMu    sync.Mutex
	zipCache map[string]string // asset url -> temp file
}

func NewRunner(log logging.Logger, httpc *HTTPClient, seen *database.SeenStore, outputDir string) *Runner {
	if log == nil {
		log = logging.Discard
	}
	if httpc == nil {
		httpc = NewHTTPClient(log)
	}
	return &Runner{
		Log:       log,
		HTTP:      httpc,
		Seen:      seen,
		OutputDir: outputDir,
		Workers:   4,
	}
}

func (r *Runner) notify(ev progress.Event) {
	if r.Notify != nil {
		r.Notify(ev)
	}
}

// Run drives one full indexer run for src. Item-level failures are
// collected in the result; only an aborted discovery makes Success
// false and returns an error.
func (r *Runner) Run(ctx context.Context, src Source) (*models.IndexerResult, error) {
	start := time.Now()
	result := &models.IndexerResult{
		RunID:   uuid.NewString(),
		Source:  src.Kind(),
		Success: true,
	}

	r.zipMu.Lock()
	r.zipCache = make(map[string]string)
	r.zipMu.Unlock()
	defer r.cleanupZipCache()

	r.Log.Info("indexer run starting", "source", src.Name(), "runId", result.RunID)
	r.notify(progress.Event{Type: progress.EventRunStart, RunID: result.RunID, Source: string(src.Kind())})

	items := make(chan RemoteItem)
	var discErr error

	go func() {
		defer close(items)
		discovered := 0
		err := src.Discover(ctx, func(item RemoteItem) error {
			if r.MaxItems > 0 && discovered >= r.MaxItems {
				return ErrStopDiscovery
			}
			discovered++
			select {
			case items <- item:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, ErrStopDiscovery) {
			discErr = err
		}
	}()

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				processed, err := r.processItem(ctx, src, result.RunID, item)

				mu.Lock()
				switch {
				case err != nil:
					result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", item.OriginalID, err))
					r.Log.Warn("item failed", "source", src.Name(), "item", item.OriginalID, "error", err)
					r.notify(progress.Event{
						Type: progress.EventRunError, RunID: result.RunID,
						Source: string(src.Kind()), LevelID: item.Metadata.ID, Message: err.Error(),
					})
				case processed:
					result.LevelsProcessed++
					r.notify(progress.Event{
						Type: progress.EventRunLevel, RunID: result.RunID,
						Source: string(src.Kind()), LevelID: item.Metadata.ID,
						Processed: result.LevelsProcessed, Skipped: result.LevelsSkipped,
					})
				default:
					result.LevelsSkipped++
					r.notify(progress.Event{
						Type: progress.EventRunSkip, RunID: result.RunID,
						Source: string(src.Kind()), LevelID: item.Metadata.ID,
						Processed: result.LevelsProcessed, Skipped: result.LevelsSkipped,
					})
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	result.Duration = time.Since(start)

	if discErr != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("discovery: %v", discErr))
		r.notify(progress.Event{Type: progress.EventRunDone, RunID: result.RunID,
			Source: string(src.Kind()), Processed: result.LevelsProcessed,
			Skipped: result.LevelsSkipped, Message: discErr.Error()})
		return result, fmt.Errorf("indexer %s: discovery: %w", src.Name(), discErr)
	}

	r.Log.Success("indexer run finished",
		"source", src.Name(), "runId", result.RunID,
		"processed", result.LevelsProcessed, "skipped", result.LevelsSkipped,
		"errors", len(result.Errors), "duration", result.Duration)
	r.notify(progress.Event{Type: progress.EventRunDone, RunID: result.RunID,
		Source: string(src.Kind()), Processed: result.LevelsProcessed, Skipped: result.LevelsSkipped})

	return result, nil
}

// processItem writes one level directory. Returns processed=false when
// the item was already seen.
func (r *Runner) processItem(ctx context.Context, src Source, runID string, item RemoteItem) (bool, error) {
	if item.Metadata.Source == models.SourceMerged {
		return false, fmt.Errorf("indexer emitted reserved source %q", models.SourceMerged)
	}
	if item.OriginalID == "" || item.Metadata.ID == "" {
		return false, errors.New("item missing ids")
	}

	if r.Seen != nil {
		seen, err := r.Seen.IsSeen(ctx, src.Kind(), item.OriginalID)
		if err != nil {
			return false, err
		}
		if seen {
			return false, nil
		}
	}

	relDir := filepath.Join(src.Kind().LevelsDir(), item.Metadata.ID)
	levelDir := filepath.Join(r.OutputDir, relDir)
	if err := os.MkdirAll(levelDir, 0o755); err != nil {
		return false, fmt.Errorf("mkdir %s: %w", levelDir, err)
	}

	now := time.Now().UTC()
	lvl := models.Level{
		Metadata:    item.Metadata,
		CatalogPath: filepath.Join(relDir, catalog.LevelCatalogFilename),
		Indexed:     now,
		LastUpdated: now,
	}

	for _, rf := range item.Files {
		dest := filepath.Join(levelDir, rf.Filename)

		size, hash, err := r.download(ctx, rf, dest)
		if err != nil {
			if rf.FileType == models.FilePrimaryBinary {
				return false, fmt.Errorf("download %s: %w", rf.Filename, err)
			}
			r.Log.Warn("skipping file", "item", item.OriginalID, "file", rf.Filename, "error", err)
			continue
		}

		lf := models.LevelFile{
			Filename: rf.Filename,
			Path:     rf.Filename,
			Size:     size,
			FileType: rf.FileType,
		}
		if rf.FileType == models.FilePrimaryBinary {
			lf.Hash = hash
			lvl.PrimaryFilePath = filepath.Join(relDir, rf.Filename)
			if lvl.Metadata.FileSize == 0 {
				lvl.Metadata.FileSize = size
			}
		}
		lvl.Files = append(lvl.Files, lf)
	}

	if lvl.PrimaryFile() == nil {
		return false, errors.New("no primary binary downloaded")
	}

	if err := fsutil.WriteJSONAtomic(filepath.Join(levelDir, catalog.LevelCatalogFilename), &lvl); err != nil {
		return false, err
	}

	if r.Seen != nil {
		if err := r.Seen.MarkSeen(ctx, src.Kind(), item.OriginalID, item.Metadata.ID); err != nil {
			return false, err
		}
	}

	return true, nil
}

// download fetches one remote file to dest and returns its size and
// content hash. Zip-embedded payloads are extracted from a per-run
// cached copy of the archive.
func (r *Runner) download(ctx context.Context, rf RemoteFile, dest string) (int64, string, error) {
	if rf.ZipEntry != "" {
		return r.extractFromZip(ctx, rf, dest)
	}

	resp, err := r.HTTP.Get(ctx, rf.URL, nil)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp_dl_*")
	if err != nil {
		return 0, "", err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	hash, size, err := hashTee(resp.Body, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, "", err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return 0, "", err
	}
	return size, hash, nil
}

func (r *Runner) extractFromZip(ctx context.Context, rf RemoteFile, dest string) (int64, string, error) {
	zipPath, err := r.fetchZip(ctx, rf.URL)
	if err != nil {
		return 0, "", err
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, "", fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != rf.ZipEntry {
			continue
		}
		in, err := f.Open()
		if err != nil {
			return 0, "", fmt.Errorf("open zip entry %s: %w", rf.ZipEntry, err)
		}
		defer in.Close()

		tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp_zip_*")
		if err != nil {
			return 0, "", err
		}
		tmpName := tmp.Name()
		defer func() { _ = os.Remove(tmpName) }()

		hash, size, err := hashTee(in, tmp)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return 0, "", err
		}
		if err := os.Rename(tmpName, dest); err != nil {
			return 0, "", err
		}
		return size, hash, nil
	}

	return 0, "", fmt.Errorf("zip entry %s not found", rf.ZipEntry)
}

// fetchZip downloads an archive asset once per run.
func (r *Runner) fetchZip(ctx context.Context, url string) (string, error) {
	r.zipMu.Lock()
	defer r.zipMu.Unlock()

	if path, ok := r.zipCache[url]; ok {
		return path, nil
	}

	resp, err := r.HTTP.Get(ctx, url, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "levelhub_zip_*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}

	r.zipCache[url] = tmp.Name()
	return tmp.Name(), nil
}

func (r *Runner) cleanupZipCache() {
	r.zipMu.Lock()
	defer r.zipMu.Unlock()
	for _, path := range r.zipCache {
		_ = os.Remove(path)
	}
	r.zipCache = nil
}

// hashTee copies src to dst while hashing, returning hash and size.
func hashTee(src io.Reader, dst io.Writer) (string, int64, error) {
	return hashutil.HashReader(io.TeeReader(src, dst))
}
