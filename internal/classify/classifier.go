// Package classify turns single lines of OCR text into form field names
// using an ordered cascade of layout patterns.
package classify

import (
	"fmt"
	"strings"
)

// Default tunables for the fallback rule
const (
	DefaultFallbackMaxWords = 8
	DefaultFallbackMaxLen   = 100
)

// Options tunes the classifier
type Options struct {
	// FallbackMaxWords is the largest word count the fallback rule accepts
	FallbackMaxWords int
	// FallbackMaxLen is the exclusive upper length bound of the fallback rule
	FallbackMaxLen int
	// ExtraCheckboxGlyphs are added to DefaultCheckboxGlyphs. Empty unless an
	// operator has seen other glyphs in real OCR output.
	ExtraCheckboxGlyphs string
}

// DefaultOptions returns the bounds used by the reference ruleset
func DefaultOptions() Options {
	return Options{
		FallbackMaxWords: DefaultFallbackMaxWords,
		FallbackMaxLen:   DefaultFallbackMaxLen,
	}
}

// Validate checks the options for usable values
func (o Options) Validate() error {
	if o.FallbackMaxWords < 1 {
		return fmt.Errorf("fallback max words must be positive, got %d", o.FallbackMaxWords)
	}
	if o.FallbackMaxLen < 2 {
		return fmt.Errorf("fallback max length must be at least 2, got %d", o.FallbackMaxLen)
	}
	return nil
}

// Candidate is a field name produced by a rule
type Candidate struct {
	Name string `json:"name"`
	Rule RuleID `json:"rule"`
}

// Classifier applies the rule cascade. It holds no mutable state and is safe
// for concurrent use.
type Classifier struct {
	rules []Rule
}

// New creates a classifier with the given options
func New(opts Options) (*Classifier, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier options: %w", err)
	}
	return &Classifier{rules: buildRules(opts)}, nil
}

// NewDefault creates a classifier with DefaultOptions
func NewDefault() *Classifier {
	return &Classifier{rules: buildRules(DefaultOptions())}
}

// Rules returns the cascade in evaluation order
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify returns the field name found on a single line, if any.
//
// The first rule whose pattern matches claims the line. When that rule's
// length gate rejects the label the line yields nothing; later rules are not
// consulted.
func (c *Classifier) Classify(line string) (Candidate, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Candidate{}, false
	}

	for _, rule := range c.rules {
		label, ok := rule.Match(line)
		if !ok {
			continue
		}
		label = strings.TrimSpace(label)
		if !rule.accepts(label) {
			return Candidate{}, false
		}
		return Candidate{Name: label, Rule: rule.ID}, true
	}

	return Candidate{}, false
}

// ClassifyText splits a block of OCR text into lines and classifies each,
// returning candidates in line order.
func (c *Classifier) ClassifyText(text string) []Candidate {
	var out []Candidate
	for _, line := range SplitLines(text) {
		if cand, ok := c.Classify(line); ok {
			out = append(out, cand)
		}
	}
	return out
}

// SplitLines splits OCR output on line breaks, normalising CR and CRLF
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
