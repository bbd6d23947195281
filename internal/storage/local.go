package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalURLPrefix is the route the HTTP server serves local objects under.
const LocalURLPrefix = "/api/storage/"

// Compile-time check that Local implements Blobs.
var _ Blobs = (*Local)(nil)

// Local stores objects on the local filesystem at <basePath>/<key>.
type Local struct {
	basePath string
}

// NewLocal creates a Local backend rooted at basePath.
func NewLocal(basePath string) *Local {
	return &Local{basePath: basePath}
}

// objectPath resolves key under basePath, refusing keys that would escape it.
func (l *Local) objectPath(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	return filepath.Join(l.basePath, clean), nil
}

// URLFor returns the server-relative URL the object is served from.
func (l *Local) URLFor(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return LocalURLPrefix + strings.Join(segments, "/")
}

// Exists checks whether the object file exists on disk.
func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	path, err := l.objectPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking file %s: %w", path, err)
}

// Store writes data from the reader to disk using atomic write (temp file + rename).
// It returns the number of bytes written.
func (l *Local) Store(key string, data io.Reader) (int64, error) {
	dst, err := l.objectPath(key)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("renaming temp file to %s: %w", dst, err)
	}

	// Rename succeeded; prevent deferred cleanup from removing the final file.
	tmpPath = ""
	return n, nil
}

// Retrieve opens the stored object.
func (l *Local) Retrieve(key string) (io.ReadCloser, error) {
	path, err := l.objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrBlobNotFound)
		}
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	return f, nil
}
