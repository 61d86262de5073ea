package voice

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CachedSynthesizer stores synthesized audio on disk, keyed by voice, format and text.
// Concurrent requests for the same key share one backend call.
type CachedSynthesizer struct {
	next  Synthesizer
	dir   string
	group   singleflight.Group
	timeout time.Duration
	log     *logrus.Entry
}

func NewCachedSynthesizer(next Synthesizer, dir string) (*CachedSynthesizer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &CachedSynthesizer{
		next:    next,
		dir:     dir,
		timeout: DefaultTimeout,
		log:     logrus.WithField("component", "voice-cache"),
	}, nil
}

func (c *CachedSynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	key := cacheKey(req)
	voiceDir := filepath.Join(c.dir, sanitize(req.Voice))

	if audio, ok := c.lookup(voiceDir, key); ok {
		c.log.WithField("key", key).Debug("using cached audio")
		return audio, nil
	}

	// The shared call outlives any single waiter, so a cancelled caller
	// does not fail the others joined on the same key.
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		audio, err := c.next.Synthesize(callCtx, req)
		if err != nil {
			return nil, err
		}
		if err := c.store(voiceDir, key, audio); err != nil {
			c.log.WithError(err).Warn("failed to cache audio")
		}
		return audio, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Audio), nil
	}
}

func (c *CachedSynthesizer) lookup(dir, key string) (*Audio, bool) {
	matches, _ := filepath.Glob(filepath.Join(dir, key+".*"))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil || len(data) == 0 {
			continue
		}
		return &Audio{Data: data, Format: strings.TrimPrefix(filepath.Ext(path), ".")}, true
	}
	return nil, false
}

func (c *CachedSynthesizer) store(dir, key string, audio *Audio) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, key+"."+audio.Format)
	if err := os.WriteFile(path, audio.Data, 0644); err != nil {
		return fmt.Errorf("failed to write audio to %s: %w", path, err)
	}
	return nil
}

// CacheStats summarizes the on-disk cache.
type CacheStats struct {
	Dir   string
	Files int64
	Bytes int64
}

func (c *CachedSynthesizer) Stats() (CacheStats, error) {
	stats := CacheStats{Dir: c.dir}
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // keep walking
		}
		if !info.IsDir() {
			stats.Files++
			stats.Bytes += info.Size()
		}
		return nil
	})
	return stats, err
}

// Clear removes all cached audio.
func (c *CachedSynthesizer) Clear() error {
	return os.RemoveAll(c.dir)
}

func cacheKey(req Request) string {
	return md5Sum(req.Voice + "|" + req.Format + "|" + req.Text)[:16]
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func sanitize(name string) string {
	if name == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
