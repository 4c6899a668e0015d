// Package relevance decides whether an extracted job matches a tenant's
// include/exclude/location constraints.
package relevance

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/jobwatch/job-alerts-service/common/models"
)

var (
	// Permissive shapes for US on-site locations, e.g. "CA", "CA, USA",
	// "San Francisco, CA". Applied to the location field only.
	stateAbbrevPattern = regexp.MustCompile(`(?i)\b[a-z]{2},?\s*(usa|us)?\b`)
	cityStatePattern   = regexp.MustCompile(`[A-Za-z]+,\s*[A-Z]{2}`)
)

// Filter matches job text against an immutable constraint set. Construct it
// once per run; Matches is pure and safe for concurrent use.
type Filter struct {
	include  []string
	location []string
	exclude  *regexp.Regexp
}

// NewFilter normalizes the constraint lists (trim, lower-case, drop empties)
// and compiles the exclusion matcher.
//
// Include keywords match as plain substrings so that stems keep working:
// "intern" must match "Internship". Exclude keywords match on word
// boundaries so that "sr" cannot fire inside "Assured".
func NewFilter(c models.Constraints) *Filter {
	return &Filter{
		include:  normalize(c.Include),
		location: normalize(c.Location),
		exclude:  compileExclude(normalize(c.Exclude)),
	}
}

func normalize(words []string) []string {
	cleaned := lo.FilterMap(words, func(w string, _ int) (string, bool) {
		w = strings.ToLower(strings.TrimSpace(w))
		return w, w != ""
	})
	return cleaned
}

func compileExclude(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := lo.Map(words, func(w string, _ int) string {
		return regexp.QuoteMeta(w)
	})
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Matches reports whether a job passes the constraint set. The searchable
// text is the lower-cased concatenation of title, location and description.
func (f *Filter) Matches(title, location, description string) bool {
	title = strings.TrimSpace(title)
	location = strings.TrimSpace(location)
	description = strings.TrimSpace(description)

	text := strings.ToLower(strings.TrimSpace(title + " " + location + " " + description))

	return f.hasInclude(text) && f.hasLocation(text, location) && !f.hasExclude(text)
}

func (f *Filter) hasInclude(text string) bool {
	return lo.SomeBy(f.include, func(w string) bool {
		return strings.Contains(text, w)
	})
}

func (f *Filter) hasExclude(text string) bool {
	return f.exclude != nil && f.exclude.MatchString(text)
}

// hasLocation is satisfied by a configured keyword anywhere in the text, or
// by a US-shaped location string. An empty constraint list always passes.
func (f *Filter) hasLocation(text, location string) bool {
	if len(f.location) == 0 {
		return true
	}
	if lo.SomeBy(f.location, func(w string) bool { return strings.Contains(text, w) }) {
		return true
	}
	if location == "" {
		return false
	}
	return stateAbbrevPattern.MatchString(location) || cityStatePattern.MatchString(location)
}
