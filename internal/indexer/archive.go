package indexer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"levelhub/pkg/logging"
	"levelhub/pkg/models"
	"levelhub/pkg/utils"
)

// ArchiveSource indexes the public archive service: a paginated search
// API lists items in the game's collection, a metadata endpoint per
// item describes its files.
type ArchiveSource struct {
	HTTP      *HTTPClient
	Log       logging.Logger
	Config    utils.ArchiveConfig
	Rows      int
	PageDelay time.Duration
}

func NewArchiveSource(log logging.Logger, httpc *HTTPClient, cfg utils.ArchiveConfig, pageDelay time.Duration) *ArchiveSource {
	if log == nil {
		log = logging.Discard
	}
	if httpc == nil {
		httpc = NewHTTPClient(log)
	}
	return &ArchiveSource{
		HTTP:      httpc,
		Log:       log,
		Config:    cfg,
		Rows:      50,
		PageDelay: pageDelay,
	}
}

func (s *ArchiveSource) Name() string { return "archive" }

func (s *ArchiveSource) Kind() models.LevelSource { return models.SourceArchive }

type archiveSearchResponse struct {
	Response struct {
		NumFound int `json:"numFound"`
		Docs     []struct {
			Identifier string `json:"identifier"`
		} `json:"docs"`
	} `json:"response"`
}

type archiveMetadataResponse struct {
	Metadata struct {
		Identifier  string `json:"identifier"`
		Title       string `json:"title"`
		Creator     string `json:"creator"`
		Description string `json:"description"`
		Date        string `json:"date"`
		Subject     any    `json:"subject"` // string or []string
	} `json:"metadata"`
	Files []struct {
		Name   string `json:"name"`
		Size   string `json:"size"`
		Format string `json:"format"`
	} `json:"files"`
}

func (s *ArchiveSource) Discover(ctx context.Context, emit func(RemoteItem) error) error {
	page := 1
	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("collection:(%s)", s.Config.Collection))
		q.Add("fl[]", "identifier")
		q.Set("rows", fmt.Sprintf("%d", s.Rows))
		q.Set("page", fmt.Sprintf("%d", page))
		q.Set("output", "json")

		searchURL := s.Config.BaseURL + "/advancedsearch.php?" + q.Encode()

		var search archiveSearchResponse
		if err := s.HTTP.GetJSON(ctx, searchURL, nil, &search); err != nil {
			return fmt.Errorf("archive: search page %d: %w", page, err)
		}
		if len(search.Response.Docs) == 0 {
			return nil
		}

		for _, doc := range search.Response.Docs {
			if doc.Identifier == "" {
				continue
			}
			item, err := s.fetchItem(ctx, doc.Identifier)
			if err != nil {
				s.Log.Warn("archive item unreadable, skipping", "item", doc.Identifier, "error", err)
				continue
			}
			if item == nil {
				continue // no level payload in this item
			}
			if err := emit(*item); err != nil {
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

func (s *ArchiveSource) fetchItem(ctx context.Context, identifier string) (*RemoteItem, error) {
	var meta archiveMetadataResponse
	if err := s.HTTP.GetJSON(ctx, s.Config.BaseURL+"/metadata/"+identifier, nil, &meta); err != nil {
		return nil, err
	}

	item := RemoteItem{
		OriginalID: identifier,
		Metadata: models.LevelMetadata{
			ID:          "archive-" + identifier,
			Title:       strings.TrimSpace(meta.Metadata.Title),
			Author:      orUnknown(meta.Metadata.Creator),
			Description: strings.TrimSpace(meta.Metadata.Description),
			Source:      models.SourceArchive,
			SourceURL:   s.Config.BaseURL + "/details/" + identifier,
			OriginalID:  identifier,
			Tags:        subjectTags(meta.Metadata.Subject),
		},
	}

	if d := parseArchiveDate(meta.Metadata.Date); d != nil {
		item.Metadata.PostedDate = d
	}

	for _, f := range meta.Files {
		fileURL := s.Config.BaseURL + "/download/" + identifier + "/" + url.PathEscape(f.Name)
		switch {
		case strings.HasSuffix(strings.ToLower(f.Name), ".dat"):
			// first .dat is the payload; further ones are ignored so the
			// one-primary invariant holds
			if hasPrimary(item.Files) {
				s.Log.Warn("archive item has multiple .dat files, keeping first",
					"item", identifier, "file", f.Name)
				continue
			}
			item.Files = append(item.Files, RemoteFile{
				Filename: f.Name,
				URL:      fileURL,
				FileType: models.FilePrimaryBinary,
			})
		case isImageName(f.Name):
			fileType := models.FileScreenshot
			if strings.Contains(strings.ToLower(f.Name), "thumb") {
				fileType = models.FileThumbnail
			}
			item.Files = append(item.Files, RemoteFile{
				Filename: f.Name,
				URL:      fileURL,
				FileType: fileType,
			})
		}
	}

	if !hasPrimary(item.Files) {
		return nil, nil
	}
	return &item, nil
}

func hasPrimary(files []RemoteFile) bool {
	for _, f := range files {
		if f.FileType == models.FilePrimaryBinary {
			return true
		}
	}
	return false
}

func isImageName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.UnknownAuthor
	}
	return strings.TrimSpace(s)
}

// subjectTags flattens the archive's subject field, which is either a
// single string (possibly semicolon-separated) or a list.
func subjectTags(subject any) []string {
	var raw []string
	switch v := subject.(type) {
	case string:
		raw = strings.Split(v, ";")
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	var tags []string
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func parseArchiveDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
