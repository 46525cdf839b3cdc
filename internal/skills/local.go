package skills

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/themobileprof/commandbot/internal/classifier"
	"github.com/themobileprof/commandbot/internal/fallback"
)

// Greet returns one of the fixed greetings.
func (s *Skills) Greet() string {
	return fallback.Greetings[s.pick(len(fallback.Greetings))]
}

// CurrentTime reports the wall clock as "The current time is 03:04 PM".
func (s *Skills) CurrentTime() string {
	return "The current time is " + s.now().In(s.location).Format("03:04 PM")
}

// Remind acknowledges a reminder. Nothing is scheduled.
func Remind(token string) string {
	if token == "" {
		return fallback.ReminderSoon
	}
	return fmt.Sprintf(fallback.ReminderAt, token)
}

// OpenBrowser launches the host browser, or returns a link when headless.
func (s *Skills) OpenBrowser() string {
	if s.headless {
		return "Click here to open Google:" + GoogleURL
	}
	if s.browser == nil {
		return fallback.GetFallbackResponse(classifier.IntentOpenBrowser)
	}
	if err := s.browser.Open(GoogleURL); err != nil {
		s.logger.Warn("failed to open browser", zap.Error(err))
		return fallback.GetFallbackResponse(classifier.IntentOpenBrowser)
	}
	return "Opening your web browser."
}
