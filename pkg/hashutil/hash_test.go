package hashutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBytes(t *testing.T) {
	h := HashBytes([]byte("PAYLOAD"))
	assert.Len(t, h, 16)
	assert.Equal(t, h, HashBytes([]byte("PAYLOAD")))
	assert.NotEqual(t, h, HashBytes([]byte("payload")))
	assert.Len(t, HashBytes(nil), 16, "empty input still yields a full-width hash")
}

func TestHashFile_MatchesHashBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.dat")
	require.NoError(t, os.WriteFile(path, []byte("PAYLOAD"), 0o644))

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes([]byte("PAYLOAD")), got)
}

func TestHashFile_Missing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope.dat"))
	require.Error(t, err)
}

func TestHashReader(t *testing.T) {
	h, n, err := HashReader(strings.NewReader("PAYLOAD"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, HashBytes([]byte("PAYLOAD")), h)
}
