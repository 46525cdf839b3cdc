package classifier

import (
	"regexp"
	"strings"

	"github.com/themobileprof/commandbot/internal/extract"
	"github.com/themobileprof/commandbot/internal/mathexpr"
)

// Intent represents the classified intent of a single segment
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentOpenBrowser Intent = "open_browser"
	IntentGetTime     Intent = "get_time"
	IntentGetWeather  Intent = "get_weather"
	IntentGetNews     Intent = "get_news"
	IntentSolve       Intent = "solve"
	IntentLookup      Intent = "lookup"
	IntentRemind      Intent = "remind"
	IntentSearch      Intent = "search"
	IntentUnknown     Intent = "unknown"
)

// Intents lists every intent in rule order.
var Intents = []Intent{
	IntentGreeting,
	IntentOpenBrowser,
	IntentGetTime,
	IntentGetWeather,
	IntentGetNews,
	IntentSolve,
	IntentLookup,
	IntentRemind,
	IntentSearch,
	IntentUnknown,
}

// Result carries the intent and whatever argument its handler needs.
type Result struct {
	Intent  Intent `json:"intent"`
	Segment string `json:"segment"`

	// City is empty for a weather request that names no recognizable city.
	City string `json:"city,omitempty"`
	// Topic is set for news, lookup and search.
	Topic string `json:"topic,omitempty"`
	// Expression is the canonical arithmetic form of a solve segment.
	Expression string `json:"expression,omitempty"`
	// TimeToken is the raw time text of a reminder, empty when none was given.
	TimeToken string `json:"time_token,omitempty"`
}

// Classifier performs ordered rule-based intent classification.
// The first matching rule wins.
type Classifier struct {
	greetingPatterns []*regexp.Regexp
	browserPhrases   []string
	solveKeywords    []string
	lookupPhrases    []string
	searchPatterns   []*regexp.Regexp
	cities           *extract.Gazetteer
}

// NewClassifier creates a new intent classifier. A nil gazetteer uses the
// built-in city list.
func NewClassifier(cities *extract.Gazetteer) *Classifier {
	if cities == nil {
		cities = extract.NewGazetteer(nil)
	}
	return &Classifier{
		greetingPatterns: compilePatterns([]string{
			`\b(hi|hello|hey)\b`,
			`\bgood (morning|afternoon|evening)\b`,
		}),
		browserPhrases: []string{"open browser", "launch browser"},
		solveKeywords:  []string{"calculate", "solve", "what is", "compute", "evaluate"},
		lookupPhrases:  []string{"who is", "what is", "tell me about"},
		searchPatterns: compilePatterns([]string{
			`\bsearch\b`,
			`\blook up\b`,
			`\bgoogle\b`,
		}),
		cities: cities,
	}
}

// Classify determines the intent of one segment.
//
// "what is" triggers both Solve and Lookup; Solve is checked first, so such
// segments are always treated as arithmetic.
func (c *Classifier) Classify(segment string) Result {
	normalized := normalizeText(segment)
	result := Result{Intent: IntentUnknown, Segment: normalized}

	if c.matchesPatterns(normalized, c.greetingPatterns) {
		result.Intent = IntentGreeting
		return result
	}

	if containsAny(normalized, c.browserPhrases) {
		result.Intent = IntentOpenBrowser
		return result
	}

	if strings.Contains(normalized, "time") {
		result.Intent = IntentGetTime
		return result
	}

	if strings.Contains(normalized, "weather") {
		result.Intent = IntentGetWeather
		result.City, _ = c.cities.City(normalized)
		return result
	}

	if strings.Contains(normalized, "news") {
		result.Intent = IntentGetNews
		result.Topic = extract.NewsTopic(normalized)
		return result
	}

	if containsAny(normalized, c.solveKeywords) || mathexpr.IsPureArithmetic(normalized) {
		result.Intent = IntentSolve
		result.Expression = mathexpr.Normalize(normalized)
		return result
	}

	if containsAny(normalized, c.lookupPhrases) {
		if topic := extract.LookupTopic(normalized); topic != "" {
			result.Intent = IntentLookup
			result.Topic = topic
			return result
		}
	}

	if strings.Contains(normalized, "remind") {
		result.Intent = IntentRemind
		result.TimeToken, _ = extract.TimeToken(normalized)
		return result
	}

	if c.matchesPatterns(normalized, c.searchPatterns) {
		if topic := extract.SearchTopic(normalized); topic != "" {
			result.Intent = IntentSearch
			result.Topic = topic
			return result
		}
	}

	return result
}

// normalizeText lower-cases and trims. Segments from the splitter are already
// in this form; callers classifying raw text get the same treatment.
func normalizeText(input string) string {
	return strings.TrimSpace(strings.ToLower(input))
}

// matchesPatterns checks if any pattern matches
func (c *Classifier) matchesPatterns(text string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// compilePatterns compiles a slice of regex patterns
func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re := regexp.MustCompile(p)
		compiled = append(compiled, re)
	}
	return compiled
}
