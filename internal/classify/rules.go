package classify

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RuleID identifies the layout pattern that produced a candidate
type RuleID int

const (
	RuleNone RuleID = iota
	RuleColon
	RuleUnderscore
	RuleNumbered
	RuleCheckbox
	RuleFallback
)

// String returns the rule name used in logs and tool output
func (r RuleID) String() string {
	switch r {
	case RuleColon:
		return "colon"
	case RuleUnderscore:
		return "underscore"
	case RuleNumbered:
		return "numbered"
	case RuleCheckbox:
		return "checkbox"
	case RuleFallback:
		return "fallback"
	default:
		return "none"
	}
}

// MarshalText encodes the rule by name
func (r RuleID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// spaceChars matches the Unicode whitespace OCR engines emit, including
// no-break and other Zs spaces that RE2's \s leaves out.
const spaceChars = `\s\p{Z}\v\x{1c}-\x{1f}\x{85}`

// space is a single whitespace character
const space = `[` + spaceChars + `]`

// labelClass is the set of characters a field label may contain after its
// leading capital. Digits and most punctuation are excluded on purpose.
const labelClass = `[A-Za-z` + spaceChars + `&/\-,()]`

// DefaultCheckboxGlyphs are the bullet glyphs accepted by the checkbox rule.
const DefaultCheckboxGlyphs = "☐□○◯O"

var (
	colonPattern      = regexp.MustCompile(`^([A-Z]` + labelClass + `+):` + space + `*$`)
	underscorePattern = regexp.MustCompile(`^([A-Z]` + labelClass + `+)` + space + `+_{2,}`)
	numberedPattern   = regexp.MustCompile(`^\p{Nd}+\.` + space + `+([A-Z]` + labelClass + `+)(?::|$)`)
)

// Rule is one step of the classification cascade. Match reports whether the
// rule claims the line and returns the raw label; the length gate is applied
// afterwards by the classifier.
type Rule struct {
	ID    RuleID
	Name  string
	Match func(line string) (label string, ok bool)

	// Accepted label length in runes, both bounds exclusive
	MinLen int
	MaxLen int

	// MaxWords limits the number of whitespace separated words; 0 disables
	MaxWords int

	Description string
}

// accepts applies the rule's length and word gates to a trimmed label
func (r Rule) accepts(label string) bool {
	n := utf8.RuneCountInString(label)
	if n <= r.MinLen || n >= r.MaxLen {
		return false
	}
	if r.MaxWords > 0 && len(strings.Fields(label)) > r.MaxWords {
		return false
	}
	return true
}

// buildRules returns the cascade in priority order. The order matters: later
// rules are looser and would also match lines claimed by earlier ones.
func buildRules(opts Options) []Rule {
	checkbox := regexp.MustCompile(`^` + glyphClass(DefaultCheckboxGlyphs+opts.ExtraCheckboxGlyphs) +
		space + `+([A-Z]` + labelClass + `+)`)

	return []Rule{
		{
			ID:          RuleColon,
			Name:        "colon",
			Match:       submatch(colonPattern),
			MinLen:      3,
			MaxLen:      100,
			Description: "Capitalised label terminated by a colon, e.g. \"Named Insured:\"",
		},
		{
			ID:          RuleUnderscore,
			Name:        "underscore",
			Match:       submatch(underscorePattern),
			MinLen:      3,
			MaxLen:      100,
			Description: "Label followed by a fill-in blank, e.g. \"Address ______\"",
		},
		{
			ID:          RuleNumbered,
			Name:        "numbered",
			Match:       submatch(numberedPattern),
			MinLen:      3,
			MaxLen:      100,
			Description: "Numbered item, e.g. \"1. Policy Holder\"",
		},
		{
			ID:          RuleCheckbox,
			Name:        "checkbox",
			Match:       submatch(checkbox),
			MinLen:      2,
			MaxLen:      100,
			Description: "Checkbox option, e.g. \"☐ Yes\"",
		},
		{
			ID:          RuleFallback,
			Name:        "fallback",
			Match:       matchFallback,
			MinLen:      -1,
			MaxLen:      opts.FallbackMaxLen,
			MaxWords:    opts.FallbackMaxWords,
			Description: "Capitalised line containing a colon; text before the first colon",
		},
	}
}

// glyphClass builds a character class matching any of the given runes
func glyphClass(glyphs string) string {
	var b strings.Builder
	b.WriteByte('[')
	seen := make(map[rune]bool)
	for _, r := range glyphs {
		if seen[r] || unicode.IsSpace(r) {
			continue
		}
		seen[r] = true
		fmt.Fprintf(&b, `\x{%x}`, r)
	}
	b.WriteByte(']')
	return b.String()
}

func submatch(re *regexp.Regexp) func(string) (string, bool) {
	return func(line string) (string, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
}

// matchFallback claims any line that starts with an upper-case letter and
// contains a colon anywhere.
func matchFallback(line string) (string, bool) {
	first, _ := utf8.DecodeRuneInString(line)
	if !unicode.IsUpper(first) {
		return "", false
	}
	label, _, found := strings.Cut(line, ":")
	if !found {
		return "", false
	}
	return label, true
}
