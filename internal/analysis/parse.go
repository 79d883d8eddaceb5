package analysis

import (
	"strings"

	"github.com/vbonduro/arogya/internal/domain"
)

// sectionLabels maps lower-cased labels a model commonly uses to the
// assessment field they introduce.
var sectionLabels = []struct {
	prefix string
	field  func(*domain.Assessment) *string
}{
	{"disease name", condition},
	{"possible condition", condition},
	{"likely condition", condition},
	{"condition", condition},
	{"diagnosis", condition},
	{"disease", condition},
	{"confidence score", confidence},
	{"confidence level", confidence},
	{"confidence", confidence},
	{"description", description},
	{"medical disclaimer", disclaimer},
	{"disclaimer", disclaimer},
}

func condition(a *domain.Assessment) *string   { return &a.Condition }
func confidence(a *domain.Assessment) *string  { return &a.Confidence }
func description(a *domain.Assessment) *string { return &a.Description }
func disclaimer(a *domain.Assessment) *string  { return &a.Disclaimer }

// ParseAssessment splits a free-text assessment into labelled sections of the
// form "Label: value". Lines without a recognised label continue the current
// section; text before the first label is ignored. The raw text remains the
// authoritative result, so an unparseable reply yields an empty Assessment.
func ParseAssessment(raw string) domain.Assessment {
	var a domain.Assessment
	var current *string

	for _, line := range strings.Split(raw, "\n") {
		line = cleanLine(line)
		if line == "" {
			continue
		}

		if field, value, ok := ParseLabel(line); ok {
			current = field(&a)
			if value != "" {
				*current = joinSection(*current, value)
			}
			continue
		}

		if current != nil {
			*current = joinSection(*current, line)
		}
	}
	return a
}

// ParseLabel recognises a "Label: value" line and returns the accessor of
// the field it introduces together with the value.
func ParseLabel(line string) (field func(*domain.Assessment) *string, value string, ok bool) {
	label, rest, found := strings.Cut(line, ":")
	if !found {
		return nil, "", false
	}
	label = strings.ToLower(strings.TrimSpace(strings.Trim(label, "*_ ")))
	for _, l := range sectionLabels {
		if label == l.prefix {
			return l.field, strings.TrimSpace(strings.Trim(rest, "*_ ")), true
		}
	}
	return nil, "", false
}

// cleanLine strips markdown heading and list markers.
func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#>")
	line = strings.TrimSpace(line)
	for _, marker := range []string{"- ", "* ", "• "} {
		line = strings.TrimPrefix(line, marker)
	}
	return strings.TrimSpace(line)
}

func joinSection(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + " " + next
}
