package skills

import (
	"context"
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/themobileprof/commandbot/internal/classifier"
	"github.com/themobileprof/commandbot/internal/fallback"
	"github.com/themobileprof/commandbot/pkg/duckduckgo"
)

const (
	defaultSummaryCacheSize = 256
	defaultSummaryCacheTTL  = 30 * time.Minute
)

// Lookup answers with the encyclopedia summary for topic.
func (s *Skills) Lookup(ctx context.Context, topic string) string {
	summary, err := s.summary(ctx, topic)
	if err != nil {
		return fallback.GetFallbackResponse(classifier.IntentLookup)
	}
	return summary
}

// Search tries the encyclopedia first, then a web search snippet.
func (s *Skills) Search(ctx context.Context, topic string) string {
	if summary, err := s.summary(ctx, topic); err == nil {
		return summary
	}

	var snippet string
	err := s.call(ctx, ServiceWebSearch, func(ctx context.Context) error {
		if s.webSearch == nil {
			return errNotConfigured
		}
		sn, err := s.webSearch.Snippet(ctx, topic)
		snippet = sn
		return err
	})
	switch {
	case errors.Is(err, duckduckgo.ErrNoResult):
		return fallback.SearchEmpty
	case err != nil:
		return fallback.GetFallbackResponse(classifier.IntentSearch)
	case snippet == "":
		return fallback.SearchEmpty
	}
	return snippet
}

// summary serves from the cache, collapsing concurrent identical misses
// into one encyclopedia call.
func (s *Skills) summary(ctx context.Context, topic string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(topic))
	if v, ok := s.summaries.get(key); ok {
		return v, nil
	}

	// The shared call must outlive any single caller's cancellation; call
	// still bounds it with the service timeout.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.summaries.group.Do(key, func() (any, error) {
		var out string
		err := s.call(shared, ServiceEncyclo, func(ctx context.Context) error {
			if s.wiki == nil {
				return errNotConfigured
			}
			sum, err := s.wiki.Summary(ctx, topic)
			out = sum
			return err
		})
		if err != nil {
			return "", err
		}
		s.summaries.add(key, out)
		return out, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

type cachedSummary struct {
	text     string
	storedAt time.Time
}

type summaryCache struct {
	cache *lru.Cache[string, cachedSummary]
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group
}

func newSummaryCache(size int, ttl time.Duration, now func() time.Time) *summaryCache {
	if size <= 0 {
		size = defaultSummaryCacheSize
	}
	if ttl <= 0 {
		ttl = defaultSummaryCacheTTL
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, cachedSummary](size)
	return &summaryCache{cache: cache, ttl: ttl, now: now}
}

func (c *summaryCache) get(key string) (string, bool) {
	entry, ok := c.cache.Get(key)
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.cache.Remove(key)
		return "", false
	}
	return entry.text, true
}

func (c *summaryCache) add(key, text string) {
	c.cache.Add(key, cachedSummary{text: text, storedAt: c.now()})
}
