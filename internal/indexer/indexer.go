package indexer

import (
	"context"
	"errors"

	"levelhub/pkg/models"
)

// RemoteFile is one downloadable file belonging to a remote upload.
// When ZipEntry is set, URL points at a zip archive and the payload is
// the named entry inside it.
type RemoteFile struct {
	Filename string
	URL      string
	ZipEntry string
	Size     int64
	FileType models.LevelFileType
}

// RemoteItem is one discovered upload, already normalized into level
// metadata by the source. Exactly one file must be the primary binary;
// OriginalID is the source-native id used for resume bookkeeping.
type RemoteItem struct {
	OriginalID string
	Metadata   models.LevelMetadata
	Files      []RemoteFile
}

// ErrStopDiscovery tells a source to stop paginating; the runner
// returns it from emit once MaxItems is reached.
var ErrStopDiscovery = errors.New("indexer: stop discovery")

// Source is implemented by each external level source. Discover walks
// the remote listing page by page and hands every upload to emit;
// it stops cleanly when emit returns ErrStopDiscovery.
type Source interface {
	Name() string
	Kind() models.LevelSource
	Discover(ctx context.Context, emit func(RemoteItem) error) error
}
