package skills

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/themobileprof/commandbot/internal/classifier"
	"github.com/themobileprof/commandbot/internal/fallback"
	"github.com/themobileprof/commandbot/pkg/duckduckgo"
	"github.com/themobileprof/commandbot/pkg/newsapi"
	"github.com/themobileprof/commandbot/pkg/openweather"
	"github.com/themobileprof/commandbot/pkg/wikipedia"
	"github.com/themobileprof/commandbot/pkg/wolfram"
)

type fakeMath struct {
	answer string
	err    error
	calls  atomic.Int32
	last   string
}

func (f *fakeMath) Query(_ context.Context, q string) (string, error) {
	f.calls.Add(1)
	f.last = q
	return f.answer, f.err
}

type fakeWeather struct {
	cond *openweather.Conditions
	err  error
}

func (f *fakeWeather) Current(context.Context, string) (*openweather.Conditions, error) {
	return f.cond, f.err
}

type fakeNews struct {
	headlines []string
	err       error
	topic     string
}

func (f *fakeNews) Headlines(_ context.Context, topic string, _ int) ([]string, error) {
	f.topic = topic
	return f.headlines, f.err
}

type fakeWiki struct {
	mu      sync.Mutex
	answers map[string]string
	err     error
	calls   int
}

func (f *fakeWiki) Summary(_ context.Context, topic string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if a, ok := f.answers[topic]; ok {
		return a, nil
	}
	return "", wikipedia.ErrNotFound
}

type fakeSearch struct {
	snippet string
	err     error
}

func (f *fakeSearch) Snippet(context.Context, string) (string, error) {
	return f.snippet, f.err
}

type fakeBrowser struct {
	opened []string
	err    error
}

func (f *fakeBrowser) Open(url string) error {
	f.opened = append(f.opened, url)
	return f.err
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name       string
		segment    string
		expression string
		math       *fakeMath
		want       string
		wantCalls  int32
	}{
		{"local", "two plus three", "2 + 3", &fakeMath{}, "The answer is: 5", 0},
		{"square", "square of 4", "(4**2)", &fakeMath{}, "The answer is: 16", 0},
		{"decimal", "7 / 2", "7 / 2", &fakeMath{}, "The answer is: 3.5", 0},
		{"fallback answer", "what is the capital of france", "", &fakeMath{answer: "Paris"}, "The answer is: Paris", 1},
		{"division by zero falls through", "10 divided by 0", "10 / 0", &fakeMath{err: errors.New("boom")}, fallback.SolveFailed, 1},
		{"no short answer", "solve x", "", &fakeMath{err: wolfram.ErrNoAnswer}, fallback.SolveFailed, 1},
		{"blank answer", "solve x", "", &fakeMath{answer: "  "}, fallback.SolveFailed, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Math: tt.math})
			got := s.Solve(context.Background(), tt.segment, tt.expression)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, tt.math.calls.Load())
			if tt.wantCalls > 0 {
				assert.Equal(t, tt.segment, tt.math.last, "math service must get the original text")
			}
		})
	}
}

func TestSolve_NoMathService(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, fallback.SolveFailed, s.Solve(context.Background(), "10 divided by 0", "10 / 0"))
}

func TestWeather(t *testing.T) {
	tests := []struct {
		name    string
		city    string
		weather *fakeWeather
		want    string
	}{
		{
			name: "ok",
			city: "pune",
			weather: &fakeWeather{cond: &openweather.Conditions{
				City: "Pune", StatusCode: http.StatusOK, Temperature: 28.5, Description: "light rain",
			}},
			want: "The weather in pune is Light rain with a temperature of 28.5°C.",
		},
		{
			name: "whole degrees",
			city: "delhi",
			weather: &fakeWeather{cond: &openweather.Conditions{
				StatusCode: http.StatusOK, Temperature: 30, Description: "CLEAR SKY",
			}},
			want: "The weather in delhi is Clear sky with a temperature of 30°C.",
		},
		{
			name:    "unknown city",
			city:    "atlantis",
			weather: &fakeWeather{cond: &openweather.Conditions{StatusCode: http.StatusNotFound}},
			want:    fallback.WeatherCityNotFound,
		},
		{
			name:    "transport error",
			city:    "pune",
			weather: &fakeWeather{err: errors.New("dial tcp: timeout")},
			want:    fallback.WeatherError,
		},
		{
			name:    "no city",
			city:    "",
			weather: &fakeWeather{},
			want:    fallback.WeatherNeedsCity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Weather: tt.weather})
			assert.Equal(t, tt.want, s.Weather(context.Background(), tt.city))
		})
	}
}

func TestNews(t *testing.T) {
	t.Run("headlines", func(t *testing.T) {
		news := &fakeNews{headlines: []string{"a", "b", "c"}}
		s := New(Config{News: news})
		assert.Equal(t, "Here are the top AI news headlines: a; b; c.", s.News(context.Background(), "AI"))
		assert.Equal(t, "AI", news.topic)
	})

	t.Run("none", func(t *testing.T) {
		s := New(Config{News: &fakeNews{err: fmt.Errorf("%w: status=error", newsapi.ErrNoArticles)}})
		assert.Equal(t, fallback.NewsEmpty, s.News(context.Background(), "zzz"))
	})

	t.Run("error", func(t *testing.T) {
		s := New(Config{News: &fakeNews{err: errors.New("connection refused")}})
		assert.Equal(t, fallback.NewsError, s.News(context.Background(), "AI"))
	})
}

func TestLookup_CachesSummaries(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	wiki := &fakeWiki{answers: map[string]string{"ada lovelace": "Ada Lovelace was a mathematician."}}
	s := New(Config{
		Encyclopedia:   wiki,
		LookupCacheTTL: time.Minute,
		Now:            func() time.Time { return now },
	})

	ctx := context.Background()
	assert.Equal(t, "Ada Lovelace was a mathematician.", s.Lookup(ctx, "ada lovelace"))
	assert.Equal(t, "Ada Lovelace was a mathematician.", s.Lookup(ctx, "ada lovelace"))
	assert.Equal(t, 1, wiki.calls)

	now = now.Add(2 * time.Minute)
	s.Lookup(ctx, "ada lovelace")
	assert.Equal(t, 2, wiki.calls, "expired entry must be refetched")
}

func TestLookup_NotFound(t *testing.T) {
	s := New(Config{Encyclopedia: &fakeWiki{}})
	assert.Equal(t, fallback.LookupNotFound, s.Lookup(context.Background(), "qwertyuiop"))
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name   string
		wiki   *fakeWiki
		search *fakeSearch
		want   string
	}{
		{
			name:   "encyclopedia first",
			wiki:   &fakeWiki{answers: map[string]string{"golang": "Go is a language."}},
			search: &fakeSearch{snippet: "unused"},
			want:   "Go is a language.",
		},
		{
			name:   "snippet fallback",
			wiki:   &fakeWiki{err: wikipedia.ErrAmbiguous},
			search: &fakeSearch{snippet: "A snippet."},
			want:   "A snippet.",
		},
		{
			name:   "no snippet",
			wiki:   &fakeWiki{},
			search: &fakeSearch{err: duckduckgo.ErrNoResult},
			want:   fallback.SearchEmpty,
		},
		{
			name:   "search error",
			wiki:   &fakeWiki{err: errors.New("timeout")},
			search: &fakeSearch{err: errors.New("timeout")},
			want:   fallback.SearchError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Encyclopedia: tt.wiki, WebSearch: tt.search})
			assert.Equal(t, tt.want, s.Search(context.Background(), "golang"))
		})
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	math := &fakeMath{err: errors.New("503")}
	s := New(Config{Math: math, BreakerFailures: 2, BreakerReset: time.Hour})
	ctx := context.Background()

	for range 4 {
		assert.Equal(t, fallback.SolveFailed, s.Solve(ctx, "solve x", ""))
	}
	assert.Equal(t, int32(2), math.calls.Load(), "open breaker must short-circuit")
}

func TestMissDoesNotTripBreaker(t *testing.T) {
	math := &fakeMath{err: wolfram.ErrNoAnswer}
	s := New(Config{Math: math, BreakerFailures: 1, BreakerReset: time.Hour})
	ctx := context.Background()

	for range 3 {
		s.Solve(ctx, "solve x", "")
	}
	assert.Equal(t, int32(3), math.calls.Load())
}

func TestLocalSkills(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s := New(Config{
		Location: loc,
		Now:      func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) },
		Pick:     func(int) int { return 1 },
	})

	assert.Equal(t, "The current time is 03:00 PM", s.CurrentTime())
	assert.Equal(t, fallback.Greetings[1], s.Greet())
	assert.Equal(t, "Sure, I will remind you at 5 pm.", Remind("5 pm"))
	assert.Equal(t, "Sure, I will remind you soon.", Remind(""))
}

func TestOpenBrowser(t *testing.T) {
	t.Run("headless", func(t *testing.T) {
		b := &fakeBrowser{}
		s := New(Config{Headless: true, Browser: b})
		assert.Equal(t, "Click here to open Google:https://www.google.com", s.OpenBrowser())
		assert.Empty(t, b.opened)
	})

	t.Run("interactive", func(t *testing.T) {
		b := &fakeBrowser{}
		s := New(Config{Browser: b})
		assert.Equal(t, "Opening your web browser.", s.OpenBrowser())
		assert.Equal(t, []string{GoogleURL}, b.opened)
	})

	t.Run("launch fails", func(t *testing.T) {
		s := New(Config{Browser: &fakeBrowser{err: errors.New("no display")}})
		assert.Equal(t, fallback.BrowserFailed, s.OpenBrowser())
	})
}

func TestHandle_Dispatch(t *testing.T) {
	s := New(Config{Pick: func(int) int { return 0 }})
	ctx := context.Background()

	assert.Equal(t, fallback.Greetings[0], s.Handle(ctx, classifier.Result{Intent: classifier.IntentGreeting}))
	assert.Equal(t, "The answer is: 10", s.Handle(ctx, classifier.Result{
		Intent: classifier.IntentSolve, Segment: "what is 5 plus 5", Expression: "5 + 5",
	}))
	assert.Equal(t, "Sure, I will remind you at 7:30 am.", s.Handle(ctx, classifier.Result{
		Intent: classifier.IntentRemind, TimeToken: "7:30 am",
	}))
	assert.Equal(t, "I couldn't understand that part: hiking", s.Handle(ctx, classifier.Result{
		Intent: classifier.IntentUnknown, Segment: "hiking",
	}))
}

type slowMath struct{}

func (slowMath) Query(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCallTimeout(t *testing.T) {
	s := New(Config{Math: slowMath{}, Timeout: 20 * time.Millisecond})

	start := time.Now()
	assert.Equal(t, fallback.SolveFailed, s.Solve(context.Background(), "solve x", ""))
	assert.Less(t, time.Since(start), time.Second)
}

// gatedWiki blocks inside Summary until release is closed and keeps the
// context it was called with.
type gatedWiki struct {
	started chan struct{}
	release chan struct{}
	ctx     context.Context
}

func (g *gatedWiki) Summary(ctx context.Context, _ string) (string, error) {
	g.ctx = ctx
	close(g.started)
	select {
	case <-g.release:
		return "Go is a language.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestLookup_SharedCallSurvivesCallerCancel(t *testing.T) {
	wiki := &gatedWiki{started: make(chan struct{}), release: make(chan struct{})}
	s := New(Config{Encyclopedia: wiki})

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 1)
	go func() { got <- s.Lookup(ctx, "golang") }()

	<-wiki.started
	cancel()
	assert.NoError(t, wiki.ctx.Err(), "encyclopedia call must not inherit the caller's cancellation")
	close(wiki.release)

	assert.Equal(t, "Go is a language.", <-got)
	// a second caller is served from the cache
	assert.Equal(t, "Go is a language.", s.Lookup(context.Background(), "golang"))
}
