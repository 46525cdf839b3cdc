package extract

import (
	"regexp"
	"sort"
	"strings"
)

var defaultCities = []string{
	"agra", "ahmedabad", "amsterdam", "bangalore", "bengaluru", "bangkok", "barcelona", "beijing",
	"berlin", "bhopal", "boston", "cairo", "chandigarh", "chennai", "chicago", "coimbatore",
	"delhi", "dhaka", "dubai", "goa", "guwahati", "hong kong", "hyderabad", "indore", "istanbul",
	"jaipur", "jakarta", "kanpur", "karachi", "kathmandu", "kochi", "kolkata", "lagos", "lahore",
	"lisbon", "london", "los angeles", "lucknow", "madrid", "manila", "melbourne", "mexico city",
	"moscow", "mumbai", "mysore", "nagpur", "nairobi", "nashik", "new delhi", "new york", "noida",
	"paris", "patna", "pune", "rome", "san francisco", "sao paulo", "seoul", "shanghai", "singapore",
	"surat", "sydney", "tokyo", "toronto", "vadodara", "varanasi", "vancouver", "vienna", "visakhapatnam",
}

// Gazetteer finds known place names in a segment. It is the fallback for
// weather requests phrased without "weather in".
type Gazetteer struct {
	names    []string
	patterns []*regexp.Regexp
}

// NewGazetteer builds a gazetteer. Longer names are tried first so that
// "new delhi" wins over "delhi". A nil or empty list uses the built-in one.
func NewGazetteer(names []string) *Gazetteer {
	if len(names) == 0 {
		names = defaultCities
	}

	cleaned := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		cleaned = append(cleaned, n)
	}
	sort.SliceStable(cleaned, func(i, j int) bool {
		return len(cleaned[i]) > len(cleaned[j])
	})

	g := &Gazetteer{names: cleaned, patterns: make([]*regexp.Regexp, len(cleaned))}
	for i, n := range cleaned {
		g.patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(n) + `\b`)
	}
	return g
}

// Find returns the first known city mentioned in segment.
func (g *Gazetteer) Find(segment string) (string, bool) {
	lower := strings.ToLower(segment)
	for i, re := range g.patterns {
		if re.MatchString(lower) {
			return g.names[i], true
		}
	}
	return "", false
}

// City extracts the city for a weather segment: the "weather in" pattern
// first, then the gazetteer.
func (g *Gazetteer) City(segment string) (string, bool) {
	if city, ok := CityFromPattern(segment); ok {
		return city, true
	}
	return g.Find(segment)
}
