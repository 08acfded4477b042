package merger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelhub/pkg/models"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func member(id string, source models.LevelSource, title, author string) models.LevelSummary {
	meta := models.LevelMetadata{
		ID:     id,
		Title:  title,
		Author: author,
		Source: source,
	}
	return models.LevelSummary{
		ID:       id,
		Title:    title,
		Author:   author,
		Source:   source,
		Metadata: meta,
	}
}

func TestMerge_TitleSuffixStripped(t *testing.T) {
	archive := member("a", models.SourceArchive, "Cool Cave | Manic Miners custom level", "Digger Dan")
	chat := member("b", models.SourceChatCommunity, "Cool Cave", "Digger Dan")

	group := &models.DuplicateGroup{Hash: "abc123def456ff", FileSize: 2048,
		Levels: []models.LevelSummary{chat, archive}}

	merged := NewMetadataMerger(nil).Merge(group)

	assert.Equal(t, "Cool Cave", merged.Title)
	assert.Equal(t, "Digger Dan", merged.Author)
	assert.Equal(t, models.SourceMerged, merged.Source)
	assert.Equal(t, []string{"b", "a"}, merged.MergedFrom)
}

func TestMerge_DeterministicID(t *testing.T) {
	group := &models.DuplicateGroup{Hash: "0123456789abcdef", Levels: []models.LevelSummary{
		member("a", models.SourceArchive, "T", "A"),
		member("b", models.SourceChatCommunity, "T", "A"),
	}}

	m := NewMetadataMerger(nil)
	first := m.Merge(group)
	second := m.Merge(group)

	assert.Equal(t, "merged-0123456789ab", first.ID)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Author, second.Author)
	assert.Equal(t, first.Description, second.Description)
}

func TestMerge_AuthorFallsBackPastPlaceholder(t *testing.T) {
	group := &models.DuplicateGroup{Hash: "h", Levels: []models.LevelSummary{
		member("a", models.SourceArchive, "T", "Unknown"),
		member("b", models.SourceChatCommunity, "T", "RealAuthor"),
	}}

	merged := NewMetadataMerger(nil).Merge(group)
	assert.Equal(t, "RealAuthor", merged.Author)
}

func TestMerge_AllPlaceholdersYieldDefaults(t *testing.T) {
	group := &models.DuplicateGroup{Hash: "h", Levels: []models.LevelSummary{
		member("a", models.SourceArchive, "", "Unknown"),
		member("b", models.SourceChatCommunity, "", ""),
	}}

	merged := NewMetadataMerger(nil).Merge(group)
	assert.Equal(t, "Untitled", merged.Title)
	assert.Equal(t, models.UnknownAuthor, merged.Author)
}

func TestMerge_DescriptionAndAuthorNotes(t *testing.T) {
	short := member("a", models.SourceArchive, "T", "A")
	short.Metadata.Description = "A short archive blurb."

	long := member("b", models.SourceChatCommunity, "T", "A")
	long.Metadata.Description = "Here is the full story of this level, with build notes and a hint about the hidden crystal cache."

	group := &models.DuplicateGroup{Hash: "h", Levels: []models.LevelSummary{short, long}}
	merged := NewMetadataMerger(nil).Merge(group)

	assert.Equal(t, long.Metadata.Description, merged.Description)
	assert.Equal(t, short.Metadata.Description, merged.AuthorNotes)
}

func TestMerge_PlaceholderDescriptionNeverWins(t *testing.T) {
	gen := member("a", models.SourceArchive, "T", "A")
	gen.Metadata.Description = "Archived copy of a community upload, see the original post for details and discussion."

	real := member("b", models.SourceChatCommunity, "T", "A")
	real.Metadata.Description = "Watch out for the erosion near spawn."

	group := &models.DuplicateGroup{Hash: "h", Levels: []models.LevelSummary{gen, real}}
	merged := NewMetadataMerger(nil).Merge(group)

	assert.Equal(t, "Watch out for the erosion near spawn.", merged.Description)
	assert.Empty(t, merged.AuthorNotes)
}

func TestMerge_TagUnionFiltersProvenanceTags(t *testing.T) {
	a := member("a", models.SourceArchive, "T", "A")
	a.Metadata.Tags = []string{"caves", "archive", "manic-miners", "hard"}

	b := member("b", models.SourceChatCommunity, "T", "A")
	b.Metadata.Tags = []string{"hard", "discord", "timed"}

	group := &models.DuplicateGroup{Hash: "h", Levels: []models.LevelSummary{a, b}}
	merged := NewMetadataMerger(nil).Merge(group)

	assert.Equal(t, []string{"caves", "hard", "timed"}, merged.Tags)
}

func TestMerge_PostedDatePrefersChatTimestamps(t *testing.T) {
	archive := member("a", models.SourceArchive, "T", "A")
	archive.UploadDate = date("2022-01-01")
	archive.Metadata.PostedDate = archive.UploadDate

	chat := member("b", models.SourceChatCommunity, "T", "A")
	chat.UploadDate = date("2023-05-20")
	chat.Metadata.PostedDate = chat.UploadDate

	group := &models.DuplicateGroup{Hash: "h", Levels: []models.LevelSummary{archive, chat}}
	merged := NewMetadataMerger(nil).Merge(group)

	// the chat timestamp wins even though the archive date is earlier
	require.NotNil(t, merged.PostedDate)
	assert.Equal(t, *chat.UploadDate, *merged.PostedDate)
}

func TestMerge_SourceRefs(t *testing.T) {
	archive := member("a", models.SourceArchive, "T", "A")
	archive.Metadata.SourceURL = "https://archive.org/details/cool-cave-level"
	archive.UploadDate = date("2022-01-01")

	chat := member("b", models.SourceChatCommunity, "T", "A")
	chat.Metadata.SourceURL = "https://discord.com/channels/123/456/789"

	broken := member("c", models.SourceReleaseFeed, "T", "A")
	broken.Metadata.SourceURL = "::not a url::"
	broken.Metadata.OriginalID = "v1.2/cave.dat"

	group := &models.DuplicateGroup{Hash: "h", Levels: []models.LevelSummary{archive, chat, broken}}
	merged := NewMetadataMerger(nil).Merge(group)

	require.Contains(t, merged.Sources, models.SourceArchive)
	assert.Equal(t, "cool-cave-level", merged.Sources[models.SourceArchive].ItemID)
	assert.Equal(t, archive.UploadDate, merged.Sources[models.SourceArchive].UploadDate)

	require.Contains(t, merged.Sources, models.SourceChatCommunity)
	assert.Equal(t, "456", merged.Sources[models.SourceChatCommunity].ChannelID)
	assert.Equal(t, "789", merged.Sources[models.SourceChatCommunity].MessageID)

	// malformed URL degrades to the original id, not the whole merge
	require.Contains(t, merged.Sources, models.SourceReleaseFeed)
	assert.Equal(t, "v1.2/cave.dat", merged.Sources[models.SourceReleaseFeed].ItemID)
}

func TestParseSourceURL_ReleaseTag(t *testing.T) {
	ref, err := ParseSourceURL(models.SourceReleaseFeed,
		"https://github.com/manic-miners/community-levels/releases/tag/v1.2")
	require.NoError(t, err)
	assert.Equal(t, "v1.2", ref.ReleaseTag)
}

func TestStripTitleSuffix(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Cool Cave | Manic Miners custom level", "Cool Cave"},
		{"Lost Caverns - Manic Miners Level", "Lost Caverns"},
		{"Plain Title", "Plain Title"},
		{"  padded  ", "padded"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StripTitleSuffix(tc.in))
	}
}
