package flow

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPhonePatterns lists the accepted manual phone formats after normalization.
var DefaultPhonePatterns = []string{
	`^\+45\d{8}$`,     // Denmark
	`^\+380\d{9}$`,    // Ukraine
	`^\+48\d{9}$`,     // Poland
	`^\+49\d{10,11}$`, // Germany
}

// PhoneRules validates normalized phone numbers against a fixed pattern set.
type PhoneRules struct {
	patterns []*regexp.Regexp
}

// NewPhoneRules compiles the patterns. An empty list falls back to DefaultPhonePatterns.
func NewPhoneRules(patterns []string) (*PhoneRules, error) {
	if len(patterns) == 0 {
		patterns = DefaultPhonePatterns
	}
	rules := &PhoneRules{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("phone pattern %q: %w", p, err)
		}
		rules.patterns = append(rules.patterns, re)
	}
	if len(rules.patterns) == 0 {
		return nil, fmt.Errorf("no usable phone patterns")
	}
	return rules, nil
}

// Valid reports whether the normalized number matches one of the patterns.
func (r *PhoneRules) Valid(normalized string) bool {
	if r == nil || normalized == "" {
		return false
	}
	for _, re := range r.patterns {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// NormalizePhone reduces raw input to "+" followed by digits.
// A leading "00" international prefix is treated as "+". Applying it twice is a no-op.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	plus := strings.HasPrefix(raw, "+")

	var digits strings.Builder
	digits.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if !plus {
		d = strings.TrimPrefix(d, "00")
	}
	if d == "" {
		return ""
	}
	return "+" + d
}
