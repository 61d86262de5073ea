package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/facebookgo/clock"
	"github.com/sirupsen/logrus"

	"pmsim/internal/domain/course"
)

const (
	DefaultMaxAge = 24 * time.Hour
	cacheFileName = "curriculum_cache.json"
	maxBodySize   = 16 << 20
)

// CachedCurriculum is the on-disk form of a fetched curriculum.
type CachedCurriculum struct {
	Curriculum  course.Curriculum `json:"curriculum"`
	Source      string            `json:"source"`
	LastUpdated time.Time         `json:"last_updated"`
	Sessions    int               `json:"sessions"`
}

// CacheStatus describes the cache file.
type CacheStatus struct {
	File        string
	Exists      bool
	Fresh       bool
	Size        int64
	LastUpdated time.Time
	Sessions    int
	MaxAge      time.Duration
}

// Remote fetches a curriculum from a URL and keeps a copy on disk. A fresh
// cache is served without a fetch; a stale one is used when the fetch fails.
type Remote struct {
	url        string
	cacheFile  string
	maxAge     time.Duration
	httpClient *http.Client
	clock      clock.Clock
	log        *logrus.Entry
}

type RemoteOption func(*Remote)

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.httpClient = c }
}

func WithClock(c clock.Clock) RemoteOption {
	return func(r *Remote) { r.clock = c }
}

// NewRemote creates a remote loader caching into cacheDir. A zero maxAge uses DefaultMaxAge.
func NewRemote(url, cacheDir string, maxAge time.Duration, opts ...RemoteOption) *Remote {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		logrus.WithError(err).Warn("Failed to create content cache directory")
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	r := &Remote{
		url:       url,
		cacheFile: filepath.Join(cacheDir, cacheFileName),
		maxAge:    maxAge,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		clock: clock.New(),
		log: logrus.WithFields(logrus.Fields{
			"component": "content",
			"url":       url,
		}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Remote) Load(ctx context.Context) (*course.Curriculum, error) {
	if cached, err := r.loadFromCache(); err == nil && r.isFresh(cached) {
		r.log.Debug("Loading curriculum from cache")
		return &cached.Curriculum, nil
	}

	c, err := r.Refresh(ctx)
	if err != nil {
		r.log.WithError(err).Warn("Curriculum fetch failed, trying stale cache")
		if cached, cacheErr := r.loadFromCache(); cacheErr == nil {
			return &cached.Curriculum, nil
		}
		return nil, fmt.Errorf("failed to fetch curriculum and no cache available: %w", err)
	}
	return c, nil
}

// Refresh fetches the curriculum regardless of the cache and stores it.
func (r *Remote) Refresh(ctx context.Context) (*course.Curriculum, error) {
	c, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.saveToCache(c); err != nil {
		r.log.WithError(err).Warn("Failed to save curriculum cache")
	}
	return c, nil
}

func (r *Remote) fetch(ctx context.Context) (*course.Curriculum, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", r.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content server returned status %d for %s", resp.StatusCode, r.url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	// JSON is valid YAML, so one parser serves both.
	return Parse(body)
}

func (r *Remote) isFresh(cached *CachedCurriculum) bool {
	return r.clock.Now().Sub(cached.LastUpdated) < r.maxAge
}

func (r *Remote) loadFromCache() (*CachedCurriculum, error) {
	file, err := os.Open(r.cacheFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	var cached CachedCurriculum
	if err := json.NewDecoder(file).Decode(&cached); err != nil {
		return nil, fmt.Errorf("failed to decode cache file: %w", err)
	}
	if err := cached.Curriculum.Validate(); err != nil {
		return nil, fmt.Errorf("cached curriculum: %w", err)
	}
	return &cached, nil
}

func (r *Remote) saveToCache(c *course.Curriculum) error {
	cached := CachedCurriculum{
		Curriculum:  *c,
		Source:      r.url,
		LastUpdated: r.clock.Now(),
		Sessions:    countSessions(c),
	}

	file, err := os.Create(r.cacheFile)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cached); err != nil {
		return fmt.Errorf("failed to encode cache data: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"sessions": cached.Sessions,
		"file":     r.cacheFile,
	}).Info("Saved curriculum to cache")
	return nil
}

// ClearCache removes the cache file.
func (r *Remote) ClearCache() error {
	if err := os.Remove(r.cacheFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Status reports on the cache file.
func (r *Remote) Status() CacheStatus {
	st := CacheStatus{File: r.cacheFile, MaxAge: r.maxAge}
	info, err := os.Stat(r.cacheFile)
	if err != nil {
		return st
	}
	st.Exists = true
	st.Size = info.Size()
	if cached, err := r.loadFromCache(); err == nil {
		st.LastUpdated = cached.LastUpdated
		st.Sessions = cached.Sessions
		st.Fresh = r.isFresh(cached)
	}
	return st
}

func countSessions(c *course.Curriculum) int {
	n := 0
	for _, st := range c.Stages {
		n += len(st.Sessions)
	}
	for _, d := range c.Days {
		n += len(d.Clusters)
	}
	return n
}
