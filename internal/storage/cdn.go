package storage

import (
	"context"
	"strings"
)

// Compile-time check that CDN implements Backend.
var _ Backend = (*CDN)(nil)

// CDN serves objects from a public bucket URL. It cannot list or stat
// objects, so Exists always answers true: the uploader is trusted to have
// placed the bytes before the version was marked live.
type CDN struct {
	publicURL string
}

// NewCDN creates a CDN backend for the given public base URL.
func NewCDN(publicURL string) *CDN {
	return &CDN{publicURL: strings.TrimRight(publicURL, "/")}
}

// URLFor joins the public base URL and key with exactly one slash.
func (c *CDN) URLFor(key string) string {
	return c.publicURL + "/" + strings.TrimLeft(key, "/")
}

// Exists always reports true without a network call.
func (c *CDN) Exists(context.Context, string) (bool, error) {
	return true, nil
}
