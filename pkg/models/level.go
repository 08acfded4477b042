package models

import "time"

// LevelSource identifies the pipeline a level record came from.
//
// Every indexer stamps its own source on the records it writes; "merged"
// is reserved for records produced by the level merger and must never be
// emitted by an indexer.
type LevelSource string

const (
	SourceArchive            LevelSource = "archive"
	SourceChatCommunity      LevelSource = "chat-community"
	SourceChatArchiveChannel LevelSource = "chat-archive-channel"
	SourceReleaseFeed        LevelSource = "release-feed"
	SourceMerged             LevelSource = "merged"
)

// IndexedSources lists the sources written by indexers, in canonical
// scan order. SourceMerged is deliberately absent.
var IndexedSources = []LevelSource{
	SourceArchive,
	SourceChatCommunity,
	SourceChatArchiveChannel,
	SourceReleaseFeed,
}

// LevelsDir returns the per-source directory name under the output root.
func (s LevelSource) LevelsDir() string {
	switch s {
	case SourceArchive:
		return "levels-archive"
	case SourceChatCommunity:
		return "levels-community"
	case SourceChatArchiveChannel:
		return "levels-archive-channel"
	case SourceReleaseFeed:
		return "levels-releases"
	case SourceMerged:
		return "levels-merged"
	default:
		return "levels-" + string(s)
	}
}

// Valid reports whether s is one of the known source values.
func (s LevelSource) Valid() bool {
	switch s {
	case SourceArchive, SourceChatCommunity, SourceChatArchiveChannel, SourceReleaseFeed, SourceMerged:
		return true
	}
	return false
}

// LevelFileType tags each file stored alongside a level.
type LevelFileType string

const (
	FilePrimaryBinary LevelFileType = "primary-binary"
	FileScreenshot    LevelFileType = "screenshot"
	FileThumbnail     LevelFileType = "thumbnail"
	FileOther         LevelFileType = "other"
)

// UnknownAuthor is the placeholder used when no source names an author.
const UnknownAuthor = "Unknown"

// LevelFile is one file belonging to a level. Path is relative to the
// level's directory. Hash is only recorded for the primary binary; it is
// the cross-source deduplication key.
type LevelFile struct {
	Filename string        `json:"filename"`
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Hash     string        `json:"hash,omitempty"`
	FileType LevelFileType `json:"fileType"`
}

// LevelMetadata holds the descriptive fields of a level.
type LevelMetadata struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Author        string      `json:"author"`
	Description   string      `json:"description,omitempty"`
	PostedDate    *time.Time  `json:"postedDate,omitempty"`
	Source        LevelSource `json:"source"`
	SourceURL     string      `json:"sourceUrl,omitempty"`
	OriginalID    string      `json:"originalId,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	Objectives    string      `json:"objectives,omitempty"`
	Requirements  string      `json:"requirements,omitempty"`
	FormatVersion string      `json:"formatVersion,omitempty"`
	Difficulty    *int        `json:"difficulty,omitempty"`
	Rating        *float64    `json:"rating,omitempty"`
	DownloadCount *int        `json:"downloadCount,omitempty"`
	FileSize      int64       `json:"fileSize,omitempty"`
}

// Level is one indexed level instance from exactly one source.
//
// Invariant: exactly one entry in Files carries FilePrimaryBinary.
// Records are immutable after indexing except LastUpdated.
type Level struct {
	Metadata        LevelMetadata `json:"metadata"`
	Files           []LevelFile   `json:"files"`
	CatalogPath     string        `json:"catalogPath"`
	PrimaryFilePath string        `json:"primaryFilePath"`
	Indexed         time.Time     `json:"indexed"`
	LastUpdated     time.Time     `json:"lastUpdated"`
}

// PrimaryFile returns the level's primary binary entry, or nil when the
// record is malformed and has none.
func (l *Level) PrimaryFile() *LevelFile {
	for i := range l.Files {
		if l.Files[i].FileType == FilePrimaryBinary {
			return &l.Files[i]
		}
	}
	return nil
}

// ContentHash returns the primary file's content hash, or "" when the
// level has no hashed primary file and cannot take part in dedup.
func (l *Level) ContentHash() string {
	if f := l.PrimaryFile(); f != nil {
		return f.Hash
	}
	return ""
}

// Summary reduces a level to the lightweight view stored in duplicate
// groups and reports.
func (l *Level) Summary() LevelSummary {
	return LevelSummary{
		ID:         l.Metadata.ID,
		Title:      l.Metadata.Title,
		Author:     l.Metadata.Author,
		Source:     l.Metadata.Source,
		UploadDate: l.Metadata.PostedDate,
		Metadata:   l.Metadata,
	}
}
