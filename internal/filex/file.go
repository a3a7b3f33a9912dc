// Package filex holds the temp-filesystem helpers used by the transfer
// pipelines: per-invocation temp directories, indexed chunk files and the
// sequential concatenation step that rebuilds a downloaded file.
package filex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// MakeTempDir creates a fresh, uniquely named directory under root and
// returns its path. Each pipeline invocation owns exactly one such
// directory, so no locking is needed beyond the atomic create.
func MakeTempDir(root string) (string, error) {
	if err := os.MkdirAll(root, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", root, err)
	}

	dir := filepath.Join(root, uuid.NewString())
	if err := os.Mkdir(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// ChunkPath returns the path of the indexed chunk file inside dir.
func ChunkPath(dir string, index int) string {
	return filepath.Join(dir, strconv.Itoa(index))
}

// Concat rebuilds a file from count indexed chunk files in dir, writing them
// to dst strictly in index order. Each chunk file is deleted after it has
// been consumed. onChunk, if non-nil, is called with the 1-based number of
// every chunk appended so far.
//
// Concatenation is sequential on purpose: the destination writes must
// preserve byte order.
func Concat(dir string, count int, dst string, onChunk func(done int)) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	for i := 0; i < count; i++ {
		path := ChunkPath(dir, i)

		src, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open chunk %d: %w", i, err)
		}

		if _, err := io.Copy(out, src); err != nil {
			src.Close()
			return fmt.Errorf("append chunk %d: %w", i, err)
		}
		src.Close()

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove chunk %d: %w", i, err)
		}

		if onChunk != nil {
			onChunk(i + 1)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	return nil
}

// RemoveQuiet removes path recursively, ignoring errors. Used for
// best-effort temp cleanup on pipeline abort.
func RemoveQuiet(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = os.RemoveAll(p)
	}
}
