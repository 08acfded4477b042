package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"levelhub/pkg/logging"
	"levelhub/pkg/models"
	"levelhub/pkg/utils"
)

// DiscordSource indexes one Discord channel's message history. Both
// chat sources (the community uploads channel and the curated archive
// channel) share this implementation with different channel ids.
//
// Pagination walks backwards with ?before=<message id>; 429 responses
// are retried by the HTTP client honoring Retry-After.
type DiscordSource struct {
	HTTP       *HTTPClient
	Log        logging.Logger
	Config     utils.DiscordConfig
	Channel    string
	SourceKind models.LevelSource
	PageSize   int
	PageDelay  time.Duration
}

// ErrNoDiscordToken aborts a chat-source run up front.
var ErrNoDiscordToken = errors.New("indexer: discord bot token not configured")

func NewDiscordSource(log logging.Logger, httpc *HTTPClient, cfg utils.DiscordConfig, kind models.LevelSource, channel string, pageDelay time.Duration) *DiscordSource {
	if log == nil {
		log = logging.Discard
	}
	if httpc == nil {
		httpc = NewHTTPClient(log)
	}
	return &DiscordSource{
		HTTP:       httpc,
		Log:        log,
		Config:     cfg,
		Channel:    channel,
		SourceKind: kind,
		PageSize:   100,
		PageDelay:  pageDelay,
	}
}

func (s *DiscordSource) Name() string { return "discord:" + string(s.SourceKind) }

func (s *DiscordSource) Kind() models.LevelSource { return s.SourceKind }

type discordMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Author    struct {
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
	} `json:"author"`
	Attachments []struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
		URL      string `json:"url"`
	} `json:"attachments"`
}

func (s *DiscordSource) Discover(ctx context.Context, emit func(RemoteItem) error) error {
	if s.Config.BotToken == "" {
		return ErrNoDiscordToken
	}
	if s.Channel == "" {
		return fmt.Errorf("indexer: no channel configured for %s", s.SourceKind)
	}

	headers := map[string]string{"Authorization": "Bot " + s.Config.BotToken}
	before := ""

	for {
		pageURL := fmt.Sprintf("%s/channels/%s/messages?limit=%d", s.Config.APIBase, s.Channel, s.PageSize)
		if before != "" {
			pageURL += "&before=" + before
		}

		var messages []discordMessage
		if err := s.HTTP.GetJSON(ctx, pageURL, headers, &messages); err != nil {
			return fmt.Errorf("discord: fetch messages: %w", err)
		}
		if len(messages) == 0 {
			return nil
		}

		for _, msg := range messages {
			for _, item := range s.itemsFromMessage(msg) {
				if err := emit(item); err != nil {
					return err
				}
			}
		}

		before = messages[len(messages)-1].ID
		if s.PageDelay > 0 {
			select {
			case <-time.After(s.PageDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// itemsFromMessage turns a message with .dat attachments into one item
// per payload; image attachments on the same message ride along as
// screenshots on each.
func (s *DiscordSource) itemsFromMessage(msg discordMessage) []RemoteItem {
	var payloads, images []RemoteFile
	for _, att := range msg.Attachments {
		switch {
		case strings.HasSuffix(strings.ToLower(att.Filename), ".dat"):
			payloads = append(payloads, RemoteFile{
				Filename: att.Filename,
				URL:      att.URL,
				Size:     att.Size,
				FileType: models.FilePrimaryBinary,
			})
		case isImageName(att.Filename):
			images = append(images, RemoteFile{
				Filename: att.Filename,
				URL:      att.URL,
				Size:     att.Size,
				FileType: models.FileScreenshot,
			})
		}
	}
	if len(payloads) == 0 {
		return nil
	}

	author := strings.TrimSpace(msg.Author.GlobalName)
	if author == "" {
		author = orUnknown(msg.Author.Username)
	}

	var posted *time.Time
	if t, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
		t = t.UTC()
		posted = &t
	}

	var items []RemoteItem
	for i, payload := range payloads {
		levelID := "discord-" + msg.ID
		originalID := msg.ID
		if i > 0 {
			levelID = fmt.Sprintf("discord-%s-%d", msg.ID, i)
			originalID = fmt.Sprintf("%s-%d", msg.ID, i)
		}

		title := firstLine(msg.Content)
		if title == "" {
			title = strings.TrimSuffix(payload.Filename, ".dat")
		}

		item := RemoteItem{
			OriginalID: originalID,
			Metadata: models.LevelMetadata{
				ID:          levelID,
				Title:       title,
				Author:      author,
				Description: strings.TrimSpace(msg.Content),
				PostedDate:  posted,
				Source:      s.SourceKind,
				SourceURL:   fmt.Sprintf("https://discord.com/channels/@me/%s/%s", msg.ChannelID, msg.ID),
				OriginalID:  originalID,
			},
			Files: append([]RemoteFile{payload}, images...),
		}
		items = append(items, item)
	}
	return items
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
