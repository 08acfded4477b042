package merger

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"levelhub/pkg/logging"
	"levelhub/pkg/models"
)

// Priorities is the per-field source preference order used when
// combining duplicate metadata. Configurable per field; the shipped
// defaults prefer the archive's curated titles and the chat platform's
// exact message timestamps.
type Priorities struct {
	TitleAuthor []models.LevelSource
	PostedDate  []models.LevelSource
	Scalars     []models.LevelSource
}

// DefaultPriorities mirrors where each kind of metadata is most
// trustworthy in practice.
func DefaultPriorities() Priorities {
	return Priorities{
		TitleAuthor: []models.LevelSource{
			models.SourceArchive,
			models.SourceChatArchiveChannel,
			models.SourceChatCommunity,
			models.SourceReleaseFeed,
		},
		PostedDate: []models.LevelSource{
			models.SourceChatCommunity,
			models.SourceChatArchiveChannel,
			models.SourceArchive,
			models.SourceReleaseFeed,
		},
		Scalars: []models.LevelSource{
			models.SourceArchive,
			models.SourceChatArchiveChannel,
			models.SourceChatCommunity,
			models.SourceReleaseFeed,
		},
	}
}

// titleSuffixes are cosmetic catalog-site suffixes stripped from titles.
var titleSuffixes = []string{
	" | Manic Miners custom level",
	" - Manic Miners Level",
}

// placeholderPrefixes mark auto-generated descriptions that must never
// win selection nor survive as author notes.
var placeholderPrefixes = []string{
	"Archived copy of",
	"Uploaded via",
	"Mirror of",
}

// sourceTags describe provenance rather than content and are dropped
// from the merged tag union.
var sourceTags = map[string]struct{}{
	"archive":          {},
	"community":        {},
	"discord":          {},
	"github":           {},
	"internet-archive": {},
	"manic-miners":     {},
	"release":          {},
}

// MetadataMerger combines one duplicate group's metadata into a single
// MergedMetadata record. It is a total function over well-formed
// groups: incomplete metadata yields defaults, never errors.
type MetadataMerger struct {
	Log        logging.Logger
	Priorities Priorities
}

func NewMetadataMerger(log logging.Logger) *MetadataMerger {
	if log == nil {
		log = logging.Discard
	}
	return &MetadataMerger{Log: log, Priorities: DefaultPriorities()}
}

// MergedID derives the deterministic id for a group's merged record
// from its content hash, so re-running an unchanged merge reproduces
// the same id.
func MergedID(hash string) string {
	h := hash
	if len(h) > 12 {
		h = h[:12]
	}
	return "merged-" + h
}

// Merge builds the MergedMetadata for one duplicate group.
func (m *MetadataMerger) Merge(group *models.DuplicateGroup) models.MergedMetadata {
	merged := models.MergedMetadata{
		LevelMetadata: models.LevelMetadata{
			ID:     MergedID(group.Hash),
			Source: models.SourceMerged,
		},
		Sources: make(map[models.LevelSource]models.SourceRef),
	}

	merged.Title = m.pickTitle(group)
	merged.Author = m.pickAuthor(group)
	merged.Description, merged.AuthorNotes = m.pickDescription(group)
	merged.PostedDate = m.pickPostedDate(group)
	merged.Tags = mergeTags(group)
	m.fillScalars(&merged.LevelMetadata, group)

	if merged.FileSize == 0 {
		merged.FileSize = group.FileSize
	}

	for _, member := range group.Levels {
		merged.MergedFrom = append(merged.MergedFrom, member.ID)
		m.recordSource(merged.Sources, member)
	}

	return merged
}

// inPriority returns the group members reordered by source priority,
// keeping group order within each source. Members whose source is not
// listed come last in group order.
func inPriority(group *models.DuplicateGroup, order []models.LevelSource) []models.LevelSummary {
	out := make([]models.LevelSummary, 0, len(group.Levels))
	listed := make(map[models.LevelSource]bool, len(order))

	for _, src := range order {
		listed[src] = true
		for _, member := range group.Levels {
			if member.Source == src {
				out = append(out, member)
			}
		}
	}
	for _, member := range group.Levels {
		if !listed[member.Source] {
			out = append(out, member)
		}
	}
	return out
}

// StripTitleSuffix removes known cosmetic suffixes from a title.
func StripTitleSuffix(title string) string {
	title = strings.TrimSpace(title)
	for _, suffix := range titleSuffixes {
		if strings.HasSuffix(title, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(title, suffix))
		}
	}
	return title
}

func (m *MetadataMerger) pickTitle(group *models.DuplicateGroup) string {
	for _, member := range inPriority(group, m.Priorities.TitleAuthor) {
		if t := StripTitleSuffix(member.Title); t != "" && !strings.EqualFold(t, "untitled") {
			return t
		}
	}
	return "Untitled"
}

func (m *MetadataMerger) pickAuthor(group *models.DuplicateGroup) string {
	for _, member := range inPriority(group, m.Priorities.TitleAuthor) {
		if a := strings.TrimSpace(member.Author); a != "" && a != models.UnknownAuthor {
			return a
		}
	}
	return models.UnknownAuthor
}

// isPlaceholderDescription reports whether d is a generated stub.
func isPlaceholderDescription(d string) bool {
	for _, prefix := range placeholderPrefixes {
		if strings.HasPrefix(d, prefix) {
			return true
		}
	}
	return false
}

// pickDescription selects the richest (longest trimmed) non-placeholder
// description; priority order breaks length ties. The best distinct
// runner-up is preserved as author notes instead of being discarded.
func (m *MetadataMerger) pickDescription(group *models.DuplicateGroup) (desc, notes string) {
	var candidates []string
	for _, member := range inPriority(group, m.Priorities.Scalars) {
		d := strings.TrimSpace(member.Metadata.Description)
		if d == "" || isPlaceholderDescription(d) {
			continue
		}
		candidates = append(candidates, d)
	}

	for _, d := range candidates {
		if len(d) > len(desc) {
			desc = d
		}
	}
	for _, d := range candidates {
		if d != desc {
			notes = d
			break
		}
	}
	return desc, notes
}

// pickPostedDate prefers the sources known to carry exact per-message
// timestamps; within the first source type that has any date, the
// earliest wins.
func (m *MetadataMerger) pickPostedDate(group *models.DuplicateGroup) *time.Time {
	ordered := inPriority(group, m.Priorities.PostedDate)

	var i int
	for i < len(ordered) {
		src := ordered[i].Source
		var best *time.Time
		for ; i < len(ordered) && ordered[i].Source == src; i++ {
			d := ordered[i].UploadDate
			if d == nil || d.IsZero() {
				continue
			}
			if best == nil || d.Before(*best) {
				best = d
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

// mergeTags unions all members' tags in input order, collapsing exact
// duplicates and dropping provenance tags.
func mergeTags(group *models.DuplicateGroup) []string {
	var out []string
	seen := make(map[string]bool)

	for _, member := range group.Levels {
		for _, tag := range member.Metadata.Tags {
			if _, provenance := sourceTags[tag]; provenance {
				continue
			}
			if seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

// fillScalars takes the first non-empty value per optional field,
// scanning members in source-priority order.
func (m *MetadataMerger) fillScalars(meta *models.LevelMetadata, group *models.DuplicateGroup) {
	for _, member := range inPriority(group, m.Priorities.Scalars) {
		md := member.Metadata
		if meta.Objectives == "" && md.Objectives != "" {
			meta.Objectives = md.Objectives
		}
		if meta.Requirements == "" && md.Requirements != "" {
			meta.Requirements = md.Requirements
		}
		if meta.FormatVersion == "" && md.FormatVersion != "" {
			meta.FormatVersion = md.FormatVersion
		}
		if meta.Difficulty == nil && md.Difficulty != nil {
			meta.Difficulty = md.Difficulty
		}
		if meta.Rating == nil && md.Rating != nil {
			meta.Rating = md.Rating
		}
		if meta.DownloadCount == nil && md.DownloadCount != nil {
			meta.DownloadCount = md.DownloadCount
		}
		if meta.FileSize == 0 && md.FileSize != 0 {
			meta.FileSize = md.FileSize
		}
	}
}

// recordSource fills one provenance slot per contributing source type.
// The first member of each source wins; a malformed URL degrades only
// that slot.
func (m *MetadataMerger) recordSource(sources map[models.LevelSource]models.SourceRef, member models.LevelSummary) {
	if _, done := sources[member.Source]; done {
		return
	}

	ref := models.SourceRef{UploadDate: member.UploadDate}

	raw := strings.TrimSpace(member.Metadata.SourceURL)
	if raw != "" {
		parsed, err := ParseSourceURL(member.Source, raw)
		if err != nil {
			m.Log.Warn("skipping malformed source url",
				"level", member.ID, "source", member.Source, "url", raw, "error", err)
		} else {
			ref = parsed
			ref.UploadDate = member.UploadDate
		}
	}
	if ref.URL == "" && ref.ItemID == "" && ref.MessageID == "" && ref.ReleaseTag == "" {
		if member.Metadata.OriginalID != "" {
			ref.ItemID = member.Metadata.OriginalID
		}
	}

	sources[member.Source] = ref
}

// ParseSourceURL extracts the source-native identifiers from a level's
// source URL: archive item ids, Discord channel/message ids, GitHub
// release tags.
func ParseSourceURL(source models.LevelSource, raw string) (models.SourceRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return models.SourceRef{}, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return models.SourceRef{}, fmt.Errorf("parse url: not absolute: %q", raw)
	}

	ref := models.SourceRef{URL: raw}
	parts := splitPath(u.Path)

	switch source {
	case models.SourceArchive:
		// /details/<id> or /download/<id>/<file>
		if len(parts) >= 2 && (parts[0] == "details" || parts[0] == "download" || parts[0] == "metadata") {
			ref.ItemID = parts[1]
		}
	case models.SourceChatCommunity, models.SourceChatArchiveChannel:
		// /channels/<guild>/<channel>/<message>
		if len(parts) >= 4 && parts[0] == "channels" {
			ref.ChannelID = parts[2]
			ref.MessageID = parts[3]
		}
	case models.SourceReleaseFeed:
		// /<owner>/<repo>/releases/tag/<tag> or /releases/download/<tag>/<asset>
		for i := 0; i+2 < len(parts); i++ {
			if parts[i] == "releases" && (parts[i+1] == "tag" || parts[i+1] == "download") {
				ref.ReleaseTag = parts[i+2]
				break
			}
		}
	}

	return ref, nil
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
