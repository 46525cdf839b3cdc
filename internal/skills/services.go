package skills

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/classifier"
	"github.com/themobileprof/commandbot/internal/fallback"
	"github.com/themobileprof/commandbot/internal/mathexpr"
	"github.com/themobileprof/commandbot/pkg/openweather"
)

const headlineLimit = 3

// Solve evaluates expression locally and falls back to the math service
// with the untouched segment text.
func (s *Skills) Solve(ctx context.Context, segment, expression string) string {
	v, err := mathexpr.Evaluate(expression)
	if err == nil {
		return "The answer is: " + mathexpr.Format(v)
	}
	s.logger.Debug("local evaluation failed, asking math service",
		zap.String("expression", expression),
		zap.Error(err),
	)

	var answer string
	err = s.call(ctx, ServiceMath, func(ctx context.Context) error {
		if s.math == nil {
			return errNotConfigured
		}
		a, err := s.math.Query(ctx, segment)
		answer = strings.TrimSpace(a)
		return err
	})
	if err != nil || answer == "" {
		return fallback.GetFallbackResponse(classifier.IntentSolve)
	}
	return "The answer is: " + answer
}

// Weather reports current conditions for city.
func (s *Skills) Weather(ctx context.Context, city string) string {
	if city == "" {
		return fallback.WeatherNeedsCity
	}

	var cond *openweather.Conditions
	err := s.call(ctx, ServiceWeather, func(ctx context.Context) error {
		if s.weather == nil {
			return errNotConfigured
		}
		c, err := s.weather.Current(ctx, city)
		cond = c
		return err
	})
	if err != nil || cond == nil {
		return fallback.GetFallbackResponse(classifier.IntentGetWeather)
	}
	if !cond.OK() {
		return fallback.WeatherCityNotFound
	}

	return fmt.Sprintf("The weather in %s is %s with a temperature of %s°C.",
		city,
		capitalize(cond.Description),
		strconv.FormatFloat(cond.Temperature, 'f', -1, 64),
	)
}

// News lists the top headlines for topic.
func (s *Skills) News(ctx context.Context, topic string) string {
	var headlines []string
	err := s.call(ctx, ServiceNews, func(ctx context.Context) error {
		if s.news == nil {
			return errNotConfigured
		}
		h, err := s.news.Headlines(ctx, topic, headlineLimit)
		headlines = h
		return err
	})
	switch {
	case isMiss(err):
		return fallback.NewsEmpty
	case err != nil:
		return fallback.GetFallbackResponse(classifier.IntentGetNews)
	case len(headlines) == 0:
		return fallback.NewsEmpty
	}
	return fmt.Sprintf("Here are the top %s news headlines: %s.", topic, strings.Join(headlines, "; "))
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
