package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"levelhub/pkg/models"
)

// Config is the full application configuration, loaded from an optional
// .env file plus environment variables. Every key is prefixed LEVELHUB_.
type Config struct {
	OutputDir  string
	SeenDBPath string

	Archive  ArchiveConfig
	Discord  DiscordConfig
	Releases ReleasesConfig
	Indexer  IndexerConfig

	Auth AuthConfig
	HTTP HTTPConfig
}

// ArchiveConfig configures the public archive indexer.
type ArchiveConfig struct {
	BaseURL    string
	Collection string // search query tag identifying the game's items
}

// DiscordConfig configures both Discord channel indexers. A missing
// BotToken makes those runs fail up front; the rest of the app works.
type DiscordConfig struct {
	APIBase          string
	BotToken         string
	CommunityChannel string
	ArchiveChannel   string
}

// ReleasesConfig configures the GitHub release-feed indexer.
type ReleasesConfig struct {
	APIBase string
	Owner   string
	Repo    string
	Token   string // optional; raises the rate limit when set
}

// IndexerConfig holds the knobs shared by every indexer run.
type IndexerConfig struct {
	Workers   int
	MaxItems  int // 0 = unlimited
	PageDelay time.Duration
}

// AuthConfig configures the admin login on the API server. The password
// hash is a bcrypt hash; there is no user table.
type AuthConfig struct {
	JWTSecret         string
	JWTIssuer         string
	JWTDuration       time.Duration
	AdminUsername     string
	AdminPasswordHash string
}

// HTTPConfig configures the API server listener.
type HTTPConfig struct {
	Addr string
}

// Load reads envFile when it exists (missing files are fine, the
// process environment alone is enough) and builds the Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{
		OutputDir:  getEnv("LEVELHUB_OUTPUT_DIR", "./levels"),
		SeenDBPath: getEnv("LEVELHUB_SEEN_DB", "./levels/seen.db"),
		Archive: ArchiveConfig{
			BaseURL:    getEnv("LEVELHUB_ARCHIVE_BASE", "https://archive.org"),
			Collection: getEnv("LEVELHUB_ARCHIVE_COLLECTION", "manic-miners-levels"),
		},
		Discord: DiscordConfig{
			APIBase:          getEnv("LEVELHUB_DISCORD_API", "https://discord.com/api/v10"),
			BotToken:         getEnv("LEVELHUB_DISCORD_TOKEN", ""),
			CommunityChannel: getEnv("LEVELHUB_DISCORD_COMMUNITY_CHANNEL", ""),
			ArchiveChannel:   getEnv("LEVELHUB_DISCORD_ARCHIVE_CHANNEL", ""),
		},
		Releases: ReleasesConfig{
			APIBase: getEnv("LEVELHUB_GITHUB_API", "https://api.github.com"),
			Owner:   getEnv("LEVELHUB_RELEASES_OWNER", "manic-miners"),
			Repo:    getEnv("LEVELHUB_RELEASES_REPO", "community-levels"),
			Token:   getEnv("LEVELHUB_GITHUB_TOKEN", ""),
		},
		Indexer: IndexerConfig{
			Workers:   getEnvAsInt("LEVELHUB_WORKERS", 4),
			MaxItems:  getEnvAsInt("LEVELHUB_MAX_ITEMS", 0),
			PageDelay: getEnvAsDuration("LEVELHUB_PAGE_DELAY", 500*time.Millisecond),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("LEVELHUB_JWT_SECRET", "dev-secret-change-me"),
			JWTIssuer:         getEnv("LEVELHUB_JWT_ISSUER", "levelhub"),
			JWTDuration:       getEnvAsDuration("LEVELHUB_JWT_TTL", 24*time.Hour),
			AdminUsername:     getEnv("LEVELHUB_ADMIN_USER", "admin"),
			AdminPasswordHash: getEnv("LEVELHUB_ADMIN_PASSWORD_HASH", ""),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("LEVELHUB_HTTP_ADDR", ":8080"),
		},
	}

	return cfg, nil
}

// ChannelFor returns the configured Discord channel id for a chat
// source, or "" for non-chat sources.
func (c *Config) ChannelFor(source models.LevelSource) string {
	switch source {
	case models.SourceChatCommunity:
		return c.Discord.CommunityChannel
	case models.SourceChatArchiveChannel:
		return c.Discord.ArchiveChannel
	}
	return ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
