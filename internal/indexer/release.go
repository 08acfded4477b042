package indexer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"levelhub/pkg/logging"
	"levelhub/pkg/models"
	"levelhub/pkg/utils"
)

// ReleaseSource indexes a GitHub release feed. Loose .dat assets are
// levels directly; .zip assets are inspected and every .dat entry
// inside becomes its own level.
type ReleaseSource struct {
	HTTP      *HTTPClient
	Log       logging.Logger
	Config    utils.ReleasesConfig
	PerPage   int
	PageDelay time.Duration
}

func NewReleaseSource(log logging.Logger, httpc *HTTPClient, cfg utils.ReleasesConfig, pageDelay time.Duration) *ReleaseSource {
	if log == nil {
		log = logging.Discard
	}
	if httpc == nil {
		httpc = NewHTTPClient(log)
	}
	return &ReleaseSource{
		HTTP:      httpc,
		Log:       log,
		Config:    cfg,
		PerPage:   30,
		PageDelay: pageDelay,
	}
}

func (s *ReleaseSource) Name() string { return "release-feed" }

func (s *ReleaseSource) Kind() models.LevelSource { return models.SourceReleaseFeed }

type githubRelease struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	PublishedAt string `json:"published_at"`
	Author      struct {
		Login string `json:"login"`
	} `json:"author"`
	Assets []struct {
		Name               string `json:"name"`
		Size               int64  `json:"size"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

func (s *ReleaseSource) headers() map[string]string {
	h := map[string]string{"Accept": "application/vnd.github+json"}
	if s.Config.Token != "" {
		h["Authorization"] = "Bearer " + s.Config.Token
	}
	return h
}

func (s *ReleaseSource) Discover(ctx context.Context, emit func(RemoteItem) error) error {
	page := 1
	for {
		pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d&page=%d",
			s.Config.APIBase, s.Config.Owner, s.Config.Repo, s.PerPage, page)

		var releases []githubRelease
		if err := s.HTTP.GetJSON(ctx, pageURL, s.headers(), &releases); err != nil {
			return fmt.Errorf("releases: fetch page %d: %w", page, err)
		}
		if len(releases) == 0 {
			return nil
		}

		for _, rel := range releases {
			if err := s.emitRelease(ctx, rel, emit); err != nil {
				return err
			}
		}

		page++
		if s.PageDelay > 0 {
			select {
			case <-time.After(s.PageDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (s *ReleaseSource) emitRelease(ctx context.Context, rel githubRelease, emit func(RemoteItem) error) error {
	var posted *time.Time
	if t, err := time.Parse(time.RFC3339, rel.PublishedAt); err == nil {
		t = t.UTC()
		posted = &t
	}

	for _, asset := range rel.Assets {
		lower := strings.ToLower(asset.Name)
		switch {
		case strings.HasSuffix(lower, ".dat"):
			item := s.buildItem(rel, posted, RemoteFile{
				Filename: asset.Name,
				URL:      asset.BrowserDownloadURL,
				Size:     asset.Size,
				FileType: models.FilePrimaryBinary,
			}, asset.Name)
			if err := emit(item); err != nil {
				return err
			}

		case strings.HasSuffix(lower, ".zip"):
			entries, err := s.listZipPayloads(ctx, asset.BrowserDownloadURL)
			if err != nil {
				s.Log.Warn("release zip unreadable, skipping",
					"tag", rel.TagName, "asset", asset.Name, "error", err)
				continue
			}
			for _, entry := range entries {
				item := s.buildItem(rel, posted, RemoteFile{
					Filename: baseName(entry),
					URL:      asset.BrowserDownloadURL,
					ZipEntry: entry,
					FileType: models.FilePrimaryBinary,
				}, entry)
				if err := emit(item); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *ReleaseSource) buildItem(rel githubRelease, posted *time.Time, payload RemoteFile, payloadName string) RemoteItem {
	stem := sanitizeStem(payloadName)
	id := fmt.Sprintf("release-%s-%s", rel.TagName, stem)

	title := strings.TrimSuffix(baseName(payloadName), ".dat")
	if title == "" {
		title = rel.Name
	}

	return RemoteItem{
		OriginalID: fmt.Sprintf("%s/%s", rel.TagName, payloadName),
		Metadata: models.LevelMetadata{
			ID:            id,
			Title:         title,
			Author:        orUnknown(rel.Author.Login),
			Description:   strings.TrimSpace(rel.Body),
			PostedDate:    posted,
			Source:        models.SourceReleaseFeed,
			SourceURL:     rel.HTMLURL,
			OriginalID:    fmt.Sprintf("%s/%s", rel.TagName, payloadName),
			FormatVersion: rel.TagName,
		},
		Files: []RemoteFile{payload},
	}
}

// listZipPayloads downloads the asset and returns its .dat entry names.
func (s *ReleaseSource) listZipPayloads(ctx context.Context, url string) ([]string, error) {
	resp, err := s.HTTP.Get(ctx, url, s.headers())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "levelhub_zipls_*")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	var entries []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(f.Name), ".dat") {
			entries = append(entries, f.Name)
		}
	}
	return entries, nil
}

func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// sanitizeStem turns a payload name into an id-safe stem.
func sanitizeStem(name string) string {
	stem := strings.TrimSuffix(baseName(name), ".dat")
	stem = strings.ToLower(stem)

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
