package privacy

import (
	"regexp"
	"unicode/utf8"
)

const maxLogLength = 200

var (
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Matches: 555-123-4567, (555) 123-4567, +1-555-123-4567, 555-1234
	phoneRegex = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]\d{4}|\b\d{3}[-.\s]\d{4}\b`)

	creditCardRegex = regexp.MustCompile(`\b\d{4}[-\s]\d{4}[-\s]\d{4}[-\s]\d{4}\b`)

	// Credentials carried as query parameters by the weather, news and
	// math services.
	credentialRegex = regexp.MustCompile(`(?i)\b(appid|apikey|api_key|key|token)=[^&\s"]+`)
)

// Redact removes PII and credentials from text. Card numbers are replaced
// before phone numbers so a card is never half-matched as a phone.
func Redact(text string) string {
	text = credentialRegex.ReplaceAllString(text, "$1=[REDACTED]")
	text = emailRegex.ReplaceAllString(text, "[EMAIL]")
	text = creditCardRegex.ReplaceAllString(text, "[CARD]")
	text = phoneRegex.ReplaceAllString(text, "[PHONE]")
	return text
}

// SanitizeForLogging redacts text and truncates it to a loggable length.
func SanitizeForLogging(text string) string {
	redacted := Redact(text)
	if utf8.RuneCountInString(redacted) <= maxLogLength {
		return redacted
	}
	runes := []rune(redacted)
	return string(runes[:maxLogLength-3]) + "..."
}

// ContainsPII reports whether text holds something Redact would replace.
func ContainsPII(text string) bool {
	return emailRegex.MatchString(text) ||
		phoneRegex.MatchString(text) ||
		creditCardRegex.MatchString(text) ||
		credentialRegex.MatchString(text)
}
