package indexer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelhub/pkg/models"
	"levelhub/pkg/utils"
)

func TestArchiveDiscover_EmitsItemsWithMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/advancedsearch.php", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("q"), "manicminers-levels")
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `{"response":{"numFound":1,"docs":[]}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"numFound":1,"docs":[{"identifier":"cool-cave"}]}}`)
	})
	mux.HandleFunc("/metadata/cool-cave", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"metadata": {
				"identifier": "cool-cave",
				"title": "Cool Cave | Manic Miners custom level",
				"creator": "Digger Dan",
				"description": "A cave.",
				"date": "2022-03-04",
				"subject": "caves; hard"
			},
			"files": [
				{"name": "cave.dat", "size": "9", "format": "data"},
				{"name": "extra.dat", "size": "9", "format": "data"},
				{"name": "shot.png", "size": "3", "format": "PNG"},
				{"name": "cave_thumb.jpg", "size": "1", "format": "JPEG"},
				{"name": "readme.txt", "size": "1", "format": "text"}
			]
		}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := utils.ArchiveConfig{BaseURL: srv.URL, Collection: "manicminers-levels"}
	s := NewArchiveSource(nil, fastClient(), cfg, 0)

	var items []RemoteItem
	err := s.Discover(context.Background(), func(item RemoteItem) error {
		items = append(items, item)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "cool-cave", item.OriginalID)
	assert.Equal(t, "archive-cool-cave", item.Metadata.ID)
	assert.Equal(t, "Digger Dan", item.Metadata.Author)
	assert.Equal(t, []string{"caves", "hard"}, item.Metadata.Tags)
	assert.Equal(t, srv.URL+"/details/cool-cave", item.Metadata.SourceURL)
	require.NotNil(t, item.Metadata.PostedDate)
	assert.Equal(t, "2022-03-04", item.Metadata.PostedDate.Format("2006-01-02"))

	// first .dat wins, the second is dropped; images are typed
	var primaries, screenshots, thumbs int
	for _, f := range item.Files {
		switch f.FileType {
		case models.FilePrimaryBinary:
			primaries++
			assert.Equal(t, "cave.dat", f.Filename)
		case models.FileScreenshot:
			screenshots++
		case models.FileThumbnail:
			thumbs++
		}
	}
	assert.Equal(t, 1, primaries)
	assert.Equal(t, 1, screenshots)
	assert.Equal(t, 1, thumbs)
}

func TestArchiveDiscover_SkipsItemsWithoutPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/advancedsearch.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `{"response":{"docs":[]}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"docs":[{"identifier":"just-images"}]}}`)
	})
	mux.HandleFunc("/metadata/just-images", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"metadata":{"identifier":"just-images","title":"x"},"files":[{"name":"shot.png"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewArchiveSource(nil, fastClient(), utils.ArchiveConfig{BaseURL: srv.URL, Collection: "c"}, 0)

	emitted := 0
	err := s.Discover(context.Background(), func(RemoteItem) error {
		emitted++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, emitted)
}

func TestSubjectTags(t *testing.T) {
	assert.Equal(t, []string{"caves", "hard"}, subjectTags("caves; hard"))
	assert.Equal(t, []string{"a", "b"}, subjectTags([]any{"a", "b", 7}))
	assert.Nil(t, subjectTags(nil))
	assert.Nil(t, subjectTags(" ; "))
}

func TestParseArchiveDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2022-03-04", "2022-03-04"},
		{"2022-03-04 10:30:00", "2022-03-04"},
		{"2021-07-01T12:00:00Z", "2021-07-01"},
		{"2019", "2019-01-01"},
	}
	for _, tc := range cases {
		got := parseArchiveDate(tc.in)
		require.NotNil(t, got, tc.in)
		assert.Equal(t, tc.want, got.Format("2006-01-02"))
	}
	assert.Nil(t, parseArchiveDate(""))
	assert.Nil(t, parseArchiveDate("sometime last year"))
}
