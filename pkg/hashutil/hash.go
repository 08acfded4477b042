package hashutil

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// HashFile returns the xxhash64 of the file contents as 16 hex chars.
// This is the content hash recorded on every primary binary and used as
// the cross-source deduplication key.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// HashBytes returns the xxhash64 of data as 16 hex chars.
func HashBytes(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// HashReader consumes r and returns the xxhash64 of everything read,
// together with the byte count. Used when payloads are hashed while
// being streamed to disk.
func HashReader(r io.Reader) (string, int64, error) {
	h := xxhash.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return fmt.Sprintf("%016x", h.Sum64()), n, nil
}
