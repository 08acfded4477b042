package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelhub/pkg/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./levels", cfg.OutputDir)
	assert.Equal(t, "https://archive.org", cfg.Archive.BaseURL)
	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Indexer.PageDelay)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "admin", cfg.Auth.AdminUsername)
	assert.Empty(t, cfg.Auth.AdminPasswordHash, "admin login disabled by default")
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"LEVELHUB_OUTPUT_DIR=/data/levels\nLEVELHUB_WORKERS=8\nLEVELHUB_PAGE_DELAY=2s\n",
	), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("LEVELHUB_OUTPUT_DIR")
		os.Unsetenv("LEVELHUB_WORKERS")
		os.Unsetenv("LEVELHUB_PAGE_DELAY")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/data/levels", cfg.OutputDir)
	assert.Equal(t, 8, cfg.Indexer.Workers)
	assert.Equal(t, 2*time.Second, cfg.Indexer.PageDelay)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("LEVELHUB_WORKERS", "lots")
	t.Setenv("LEVELHUB_PAGE_DELAY", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Indexer.PageDelay)
}

func TestChannelFor(t *testing.T) {
	cfg := &Config{Discord: DiscordConfig{
		CommunityChannel: "111",
		ArchiveChannel:   "222",
	}}

	assert.Equal(t, "111", cfg.ChannelFor(models.SourceChatCommunity))
	assert.Equal(t, "222", cfg.ChannelFor(models.SourceChatArchiveChannel))
	assert.Empty(t, cfg.ChannelFor(models.SourceArchive))
	assert.Empty(t, cfg.ChannelFor(models.SourceMerged))
}
