// Package similarity finds live versions whose perceptual hash is within a
// Hamming-distance threshold of a target hash.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/leca/scene-archive/internal/model"
)

// Defaults mirror the archive's published similarity settings.
const (
	DefaultThreshold     = 8
	DefaultMaxCandidates = 10000
	DefaultTimeout       = 5 * time.Second

	// MaxThreshold is the largest accepted query threshold, the length of
	// a 64-bit hash in bits.
	MaxThreshold = 64

	// checkEvery is how many candidates are compared between context checks.
	checkEvery = 1024
)

// ErrInvalidHash is returned when the target hash is empty or not hex.
var ErrInvalidHash = errors.New("invalid perceptual hash")

// Source loads the candidate set. It is satisfied by the catalog store.
type Source interface {
	ListLiveVersions(ctx context.Context, limit int, hashedOnly bool) ([]*model.LiveVersion, error)
	GetCurrentLiveVersion(ctx context.Context, sceneID string) (*model.ImageVersion, error)
}

// Engine scans the live set once per call. There is no persistent index.
type Engine struct {
	src           Source
	maxCandidates int
	timeout       time.Duration
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxCandidates bounds how many live versions are loaded per call.
// Zero or less loads all of them.
func WithMaxCandidates(n int) Option {
	return func(e *Engine) { e.maxCandidates = n }
}

// WithTimeout bounds each scan. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine reading candidates from src.
func NewEngine(src Source, opts ...Option) *Engine {
	e := &Engine{
		src:           src,
		maxCandidates: DefaultMaxCandidates,
		timeout:       DefaultTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FindSimilar returns live versions within threshold of target, ordered by
// distance and then by the store's listing order (newest first). A limit of
// zero or less returns every match.
func (e *Engine) FindSimilar(ctx context.Context, target string, threshold, limit int) ([]model.SimilarMatch, error) {
	if !ValidHash(target) {
		return nil, fmt.Errorf("%q: %w", target, ErrInvalidHash)
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	candidates, err := e.src.ListLiveVersions(ctx, e.maxCandidates, true)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	matches := []model.SimilarMatch{}
	skipped := 0
	for i, c := range candidates {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("similarity scan: %w", err)
			}
		}
		if c.PerceptualHash == nil || c.StorageKey == nil {
			continue
		}
		d, ok := HammingDistance(target, *c.PerceptualHash)
		if !ok {
			skipped++
			continue
		}
		if d > threshold {
			continue
		}
		matches = append(matches, model.SimilarMatch{
			SceneID:      c.SceneID,
			VersionID:    c.VersionID,
			Distance:     d,
			StorageKey:   *c.StorageKey,
			BatchName:    c.BatchName,
			BaseFilename: c.BaseFilename,
			CaptureDate:  c.CaptureDate,
		})
	}
	if skipped > 0 {
		e.logger.Debug("similarity scan skipped hashes of different length",
			"target_length", len(target), "skipped", skipped)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// FindSimilarToScene resolves the scene's current live hash and searches
// with it, leaving the scene itself out of the results. It returns the
// hash that was used.
func (e *Engine) FindSimilarToScene(ctx context.Context, sceneID string, threshold, limit int) (string, []model.SimilarMatch, error) {
	v, err := e.src.GetCurrentLiveVersion(ctx, sceneID)
	if err != nil {
		return "", nil, err
	}
	if v.PerceptualHash == nil || *v.PerceptualHash == "" {
		return "", nil, fmt.Errorf("scene %s has no perceptual hash: %w", sceneID, model.ErrNotFound)
	}
	hash := *v.PerceptualHash

	all, err := e.FindSimilar(ctx, hash, threshold, 0)
	if err != nil {
		return "", nil, err
	}
	matches := make([]model.SimilarMatch, 0, len(all))
	for _, m := range all {
		if m.SceneID == sceneID {
			continue
		}
		matches = append(matches, m)
		if limit > 0 && len(matches) == limit {
			break
		}
	}
	return hash, matches, nil
}
