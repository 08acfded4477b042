package indexer

import (
	"fmt"

	"levelhub/pkg/logging"
	"levelhub/pkg/models"
	"levelhub/pkg/utils"
)

// BuildSource constructs the indexer source for one source kind from
// the application config.
func BuildSource(log logging.Logger, httpc *HTTPClient, cfg *utils.Config, kind models.LevelSource) (Source, error) {
	delay := cfg.Indexer.PageDelay

	switch kind {
	case models.SourceArchive:
		return NewArchiveSource(log, httpc, cfg.Archive, delay), nil
	case models.SourceChatCommunity, models.SourceChatArchiveChannel:
		return NewDiscordSource(log, httpc, cfg.Discord, kind, cfg.ChannelFor(kind), delay), nil
	case models.SourceReleaseFeed:
		return NewReleaseSource(log, httpc, cfg.Releases, delay), nil
	}
	return nil, fmt.Errorf("indexer: unknown source %q", kind)
}
