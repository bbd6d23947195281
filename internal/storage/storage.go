// Package storage maps storage keys to where a version's bytes are served
// from. The catalog never reads bytes itself; it only resolves URLs and,
// for backends that can, checks existence.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Backend types accepted by New.
const (
	TypeLocal = "local"
	TypeCDN   = "cdn"
)

// ErrInvalidKey is returned for keys that are empty or escape the store.
var ErrInvalidKey = errors.New("invalid storage key")

// ErrBlobNotFound is returned by Retrieve when no object exists for a key.
var ErrBlobNotFound = errors.New("blob not found")

// Backend resolves storage keys.
type Backend interface {
	// URLFor maps a key to a public URL. It always succeeds.
	URLFor(key string) string

	// Exists reports whether an object is stored under key. Some backends
	// answer optimistically without checking.
	Exists(ctx context.Context, key string) (bool, error)
}

// Blobs is a Backend that also holds the bytes and can serve them.
type Blobs interface {
	Backend

	// Store writes data under key and returns the number of bytes written.
	Store(key string, data io.Reader) (int64, error)

	// Retrieve returns a ReadCloser for the object under key.
	Retrieve(key string) (io.ReadCloser, error)
}

// New builds the backend named by typ.
func New(typ, basePath, publicURL string) (Backend, error) {
	switch typ {
	case "", TypeLocal:
		return NewLocal(basePath), nil
	case TypeCDN:
		if publicURL == "" {
			return nil, fmt.Errorf("cdn storage requires a public URL")
		}
		return NewCDN(publicURL), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", typ)
	}
}
