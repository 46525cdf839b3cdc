package fallback

import (
	"github.com/themobileprof/commandbot/internal/classifier"
)

// User-facing messages for answers that could not be produced normally.
// These strings are part of the response contract; change them with care.
const (
	SolveFailed         = "Sorry, I couldn't solve that."
	WeatherNeedsCity    = "Please tell me which city you want the weather for."
	WeatherCityNotFound = "Sorry, I couldn't find that city."
	WeatherError        = "Error retrieving weather information."
	NewsEmpty           = "No news found on that topic."
	NewsError           = "Error fetching news."
	LookupNotFound      = "Sorry, I couldn't find information on that."
	SearchEmpty         = "No relevant info found."
	SearchError         = "Error fetching search results."
	BrowserFailed       = "Sorry, I couldn't open your web browser."
	ReminderAt          = "Sure, I will remind you at %s."
	ReminderSoon        = "Sure, I will remind you soon."
	unknownPrefix       = "I couldn't understand that part: "
)

// Greetings are picked from at random for the greeting intent.
var Greetings = []string{
	"Hello! How can I assist you today?",
	"Hi there! What can I do for you?",
	"Good to see you! How can I help?",
}

// serviceFailures maps an intent to the apology used when its external
// collaborator errors out or its circuit is open.
var serviceFailures = map[classifier.Intent]string{
	classifier.IntentSolve:       SolveFailed,
	classifier.IntentGetWeather:  WeatherError,
	classifier.IntentGetNews:     NewsError,
	classifier.IntentLookup:      LookupNotFound,
	classifier.IntentSearch:      SearchError,
	classifier.IntentOpenBrowser: BrowserFailed,
}

// GetFallbackResponse returns the apology for a failed collaborator call.
func GetFallbackResponse(intent classifier.Intent) string {
	if msg, ok := serviceFailures[intent]; ok {
		return msg
	}
	return "I'm sorry, I'm having technical difficulties. Please try again."
}

// Unknown is the fragment for a segment no rule matched.
func Unknown(segment string) string {
	return unknownPrefix + segment
}
