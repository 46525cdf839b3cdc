// Package extract pulls capability arguments (city, topic, time token) out of
// a lower-cased segment using pattern matching.
package extract

import (
	"regexp"
	"strings"
)

// DefaultNewsTopic is used when a news request names no topic.
const DefaultNewsTopic = "AI"

var (
	cityPattern  = regexp.MustCompile(`weather in ([a-zA-Z\s]+)`)
	newsPattern  = regexp.MustCompile(`news on ([a-zA-Z\s]+)`)
	timePattern  = regexp.MustCompile(`(?i)\d{1,2}(:\d{2})?\s?(am|pm)?`)
	lookupPhrase = []string{"who is", "what is", "tell me about"}
	searchPhrase = []string{"search for", "search", "look up", "google"}
)

// CityFromPattern returns the city named by "weather in <city>".
func CityFromPattern(segment string) (string, bool) {
	m := cityPattern.FindStringSubmatch(segment)
	if m == nil {
		return "", false
	}
	city := strings.TrimSpace(m[1])
	return city, city != ""
}

// NewsTopic returns the topic named by "news on <topic>", or DefaultNewsTopic.
func NewsTopic(segment string) string {
	m := newsPattern.FindStringSubmatch(segment)
	if m == nil {
		return DefaultNewsTopic
	}
	if topic := strings.TrimSpace(m[1]); topic != "" {
		return topic
	}
	return DefaultNewsTopic
}

// LookupTopic strips the lookup trigger phrases. An empty result means the
// segment carries no topic.
func LookupTopic(segment string) string {
	return stripPhrases(segment, lookupPhrase)
}

// SearchTopic strips the search trigger phrases.
func SearchTopic(segment string) string {
	return stripPhrases(segment, searchPhrase)
}

// TimeToken returns the first time-like token ("7", "7 pm", "10:30am") echoed
// verbatim. No validation is done on the value.
func TimeToken(segment string) (string, bool) {
	loc := timePattern.FindString(segment)
	if loc == "" {
		return "", false
	}
	return strings.TrimSpace(loc), true
}

func stripPhrases(segment string, phrases []string) string {
	out := segment
	for _, p := range phrases {
		out = strings.ReplaceAll(out, p, "")
	}
	return strings.TrimSpace(out)
}
