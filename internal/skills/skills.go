// Package skills fulfils classified intents, mostly by forwarding to an
// external collaborator and turning its answer (or failure) into a reply
// fragment. Errors never leave this package.
package skills

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/circuitbreaker"
	"github.com/themobileprof/commandbot/internal/classifier"
	"github.com/themobileprof/commandbot/internal/fallback"
	"github.com/themobileprof/commandbot/internal/logging"
	"github.com/themobileprof/commandbot/internal/metrics"
	"github.com/themobileprof/commandbot/internal/privacy"
	"github.com/themobileprof/commandbot/pkg/duckduckgo"
	"github.com/themobileprof/commandbot/pkg/newsapi"
	"github.com/themobileprof/commandbot/pkg/openweather"
	"github.com/themobileprof/commandbot/pkg/wikipedia"
	"github.com/themobileprof/commandbot/pkg/wolfram"
)

// Service names used for breakers, metrics and logs.
const (
	ServiceMath      = "math"
	ServiceWeather   = "weather"
	ServiceNews      = "news"
	ServiceEncyclo   = "encyclopedia"
	ServiceWebSearch = "websearch"
)

// GoogleURL is the page the browser intent opens.
const GoogleURL = "https://www.google.com"

// MathService answers a free-text math question.
type MathService interface {
	Query(ctx context.Context, query string) (string, error)
}

// WeatherService reports current conditions for a city.
type WeatherService interface {
	Current(ctx context.Context, city string) (*openweather.Conditions, error)
}

// NewsService lists headlines for a topic.
type NewsService interface {
	Headlines(ctx context.Context, topic string, limit int) ([]string, error)
}

// Encyclopedia returns a short summary for a topic.
type Encyclopedia interface {
	Summary(ctx context.Context, topic string) (string, error)
}

// WebSearch returns a best-effort text snippet for a query.
type WebSearch interface {
	Snippet(ctx context.Context, query string) (string, error)
}

// BrowserLauncher opens a URL on the host.
type BrowserLauncher interface {
	Open(url string) error
}

// Config wires collaborators into Skills. Any nil collaborator makes its
// capability answer with the capability's failure message.
type Config struct {
	Math         MathService
	Weather      WeatherService
	News         NewsService
	Encyclopedia Encyclopedia
	WebSearch    WebSearch
	Browser      BrowserLauncher

	// Headless replaces the browser launch with a clickable link.
	Headless bool
	// Location for time answers. Default: UTC.
	Location *time.Location

	// Timeout bounds each collaborator call; SearchTimeout the web search.
	// Defaults: 10s and 5s.
	Timeout       time.Duration
	SearchTimeout time.Duration

	LookupCacheSize int
	LookupCacheTTL  time.Duration

	BreakerFailures int
	BreakerReset    time.Duration

	Metrics *metrics.Metrics
	Logger  *zap.Logger

	// Now and Pick are test seams; they default to time.Now and rand.IntN.
	Now  func() time.Time
	Pick func(n int) int
}

// Skills holds the collaborator handles for the lifetime of the process.
type Skills struct {
	math      MathService
	weather   WeatherService
	news      NewsService
	wiki      Encyclopedia
	webSearch WebSearch
	browser   BrowserLauncher

	headless      bool
	location      *time.Location
	timeout       time.Duration
	searchTimeout time.Duration
	now           func() time.Time
	pick          func(n int) int

	summaries *summaryCache
	breakers  map[string]*circuitbreaker.CircuitBreaker
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// New creates Skills from cfg.
func New(cfg Config) *Skills {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Pick == nil {
		cfg.Pick = rand.IntN
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCallTimeout
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = defaultSearchTimeout
	}

	s := &Skills{
		math:          cfg.Math,
		weather:       cfg.Weather,
		news:          cfg.News,
		wiki:          cfg.Encyclopedia,
		webSearch:     cfg.WebSearch,
		browser:       cfg.Browser,
		headless:      cfg.Headless,
		location:      cfg.Location,
		timeout:       cfg.Timeout,
		searchTimeout: cfg.SearchTimeout,
		now:           cfg.Now,
		pick:          cfg.Pick,
		metrics:       cfg.Metrics,
		logger:        logging.OrNop(cfg.Logger).Named("skills"),
		breakers:      make(map[string]*circuitbreaker.CircuitBreaker),
	}
	s.summaries = newSummaryCache(cfg.LookupCacheSize, cfg.LookupCacheTTL, cfg.Now)

	for _, name := range []string{ServiceMath, ServiceWeather, ServiceNews, ServiceEncyclo, ServiceWebSearch} {
		s.breakers[name] = circuitbreaker.New(circuitbreaker.Settings{
			Name:         name,
			MaxFailures:  cfg.BreakerFailures,
			ResetTimeout: cfg.BreakerReset,
			Logger:       s.logger,
			OnStateChange: func(name string, _, to circuitbreaker.State) {
				s.metrics.SetBreakerState(name, int(to))
			},
		})
	}
	return s
}

// Handle produces the reply fragment for one classified segment.
func (s *Skills) Handle(ctx context.Context, r classifier.Result) string {
	switch r.Intent {
	case classifier.IntentGreeting:
		return s.Greet()
	case classifier.IntentOpenBrowser:
		return s.OpenBrowser()
	case classifier.IntentGetTime:
		return s.CurrentTime()
	case classifier.IntentGetWeather:
		return s.Weather(ctx, r.City)
	case classifier.IntentGetNews:
		return s.News(ctx, r.Topic)
	case classifier.IntentSolve:
		return s.Solve(ctx, r.Segment, r.Expression)
	case classifier.IntentLookup:
		return s.Lookup(ctx, r.Topic)
	case classifier.IntentRemind:
		return Remind(r.TimeToken)
	case classifier.IntentSearch:
		return s.Search(ctx, r.Topic)
	default:
		return fallback.Unknown(r.Segment)
	}
}

// call runs fn behind the service's breaker with the service's timeout.
// Misses (the service answered but had nothing) are returned to the caller
// without tripping the breaker.
func (s *Skills) call(ctx context.Context, service string, fn func(ctx context.Context) error) error {
	timeout := s.timeout
	if service == ServiceWebSearch {
		timeout = s.searchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cb := s.breakers[service]
	var miss error
	err := cb.Call(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if isMiss(err) {
			miss = err
			return nil
		}
		return err
	})

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		s.metrics.ObserveExternalCall(service, "open")
		s.logger.Warn("service unavailable, circuit open", zap.String("service", cb.Name()))
		return err
	case err != nil:
		s.metrics.ObserveExternalCall(service, "error")
		s.logger.Warn("external call failed",
			zap.String("service", cb.Name()),
			zap.Int("consecutive_failures", cb.Failures()),
			zap.String("error", privacy.SanitizeForLogging(err.Error())),
		)
		return err
	case miss != nil:
		s.metrics.ObserveExternalCall(service, "miss")
		s.logger.Debug("external call returned no result",
			zap.String("service", service),
			zap.Error(miss),
		)
		return miss
	}
	s.metrics.ObserveExternalCall(service, "ok")
	return nil
}

func isMiss(err error) bool {
	return errors.Is(err, wolfram.ErrNoAnswer) ||
		errors.Is(err, newsapi.ErrNoArticles) ||
		errors.Is(err, wikipedia.ErrNotFound) ||
		errors.Is(err, wikipedia.ErrAmbiguous) ||
		errors.Is(err, duckduckgo.ErrNoResult)
}

const (
	defaultCallTimeout   = 10 * time.Second
	defaultSearchTimeout = 5 * time.Second
)

// errNotConfigured stands in for a collaborator that was never wired.
var errNotConfigured = errors.New("service not configured")
