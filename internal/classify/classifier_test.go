package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := NewDefault()

	tests := []struct {
		name     string
		line     string
		wantName string
		wantRule RuleID
		wantOK   bool
	}{
		{name: "colon label", line: "Named Insured:", wantName: "Named Insured", wantRule: RuleColon, wantOK: true},
		{name: "colon label with trailing spaces", line: "  Policy Number:   ", wantName: "Policy Number", wantRule: RuleColon, wantOK: true},
		{name: "colon label with punctuation", line: "Agency Name & Address (Producer):", wantName: "Agency Name & Address (Producer)", wantRule: RuleColon, wantOK: true},
		{name: "underscore blank", line: "Address ________", wantName: "Address", wantRule: RuleUnderscore, wantOK: true},
		{name: "underscore blank with trailing text", line: "Signature __________ Date", wantName: "Signature", wantRule: RuleUnderscore, wantOK: true},
		{name: "numbered item", line: "1. Policy Number", wantName: "Policy Number", wantRule: RuleNumbered, wantOK: true},
		{name: "numbered item with colon", line: "12. Coverage Type: Liability", wantName: "Coverage Type", wantRule: RuleNumbered, wantOK: true},
		{name: "checkbox open box", line: "☐ Yes", wantName: "Yes", wantRule: RuleCheckbox, wantOK: true},
		{name: "checkbox white square", line: "□ Corporation", wantName: "Corporation", wantRule: RuleCheckbox, wantOK: true},
		{name: "checkbox circle", line: "○ Individual", wantName: "Individual", wantRule: RuleCheckbox, wantOK: true},
		{name: "checkbox large circle", line: "◯ Partnership", wantName: "Partnership", wantRule: RuleCheckbox, wantOK: true},
		{name: "checkbox letter O bullet", line: "O Other", wantName: "Other", wantRule: RuleCheckbox, wantOK: true},
		{name: "fallback with trailing value", line: "Effective Date: 01/01/2024", wantName: "Effective Date", wantRule: RuleFallback, wantOK: true},
		{name: "fallback with digits in label", line: "Line 2: Suite 100", wantName: "Line 2", wantRule: RuleFallback, wantOK: true},
		{name: "fallback splits on first colon", line: "Time: 10:30 AM", wantName: "Time", wantRule: RuleFallback, wantOK: true},
		{name: "empty line", line: "", wantOK: false},
		{name: "whitespace only", line: " \t ", wantOK: false},
		{name: "lower case sentence", line: "please complete all sections of this form", wantOK: false},
		{name: "free text without markers", line: "The applicant agrees to the terms below.", wantOK: false},
		{name: "fallback too many words", line: "This is a long sentence with more than eight words: yes", wantOK: false},
		{name: "colon label too short", line: "Abc:", wantOK: false},
		{name: "checkbox label too short", line: "☐ No", wantOK: false},
		{name: "numbered label too short", line: "3. Zip", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classifier.Classify(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantName, got.Name)
				assert.Equal(t, tt.wantRule, got.Rule, "rule %s", got.Rule)
			} else {
				assert.Empty(t, got.Name)
			}
		})
	}
}

func TestClassifier_UnicodeSpaces(t *testing.T) {
	classifier := NewDefault()

	tests := []struct {
		name     string
		line     string
		wantName string
		wantRule RuleID
	}{
		{name: "no-break space in colon label", line: "Named\u00a0Insured:", wantName: "Named\u00a0Insured", wantRule: RuleColon},
		{name: "no-break space after colon", line: "Policy Number:\u00a0", wantName: "Policy Number", wantRule: RuleColon},
		{name: "no-break space before blank", line: "Named\u00a0Insured ____", wantName: "Named\u00a0Insured", wantRule: RuleUnderscore},
		{name: "no-break space after number", line: "1.\u00a0Policy Number", wantName: "Policy Number", wantRule: RuleNumbered},
		{name: "no-break space after checkbox", line: "☐\u00a0Yes", wantName: "Yes", wantRule: RuleCheckbox},
		{name: "thin space after checkbox", line: "□\u2009Corporation", wantName: "Corporation", wantRule: RuleCheckbox},
		{name: "vertical tab in label", line: "Mailing\vAddress:", wantName: "Mailing\vAddress", wantRule: RuleColon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classifier.Classify(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantRule, got.Rule, "rule %s", got.Rule)
		})
	}
}

func TestClassifier_Idempotent(t *testing.T) {
	classifier := NewDefault()
	lines := []string{"Named Insured:", "Address ________", "☐ Yes", "Effective Date: 01/01/2024", "noise"}

	for _, line := range lines {
		first, ok1 := classifier.Classify(line)
		second, ok2 := classifier.Classify(line)
		assert.Equal(t, ok1, ok2, line)
		assert.Equal(t, first, second, line)
	}
}

func TestClassifier_ColonRuleTakesPrecedenceOverFallback(t *testing.T) {
	classifier := NewDefault()

	got := classifier.ClassifyText("Policy Number:")
	require.Len(t, got, 1)
	assert.Equal(t, Candidate{Name: "Policy Number", Rule: RuleColon}, got[0])
}

func TestClassifier_LengthBounds(t *testing.T) {
	classifier := NewDefault()
	rules := classifier.Rules()
	require.Len(t, rules, 5)

	// Rules 1-3 reject labels of length <= 3 and >= 100.
	for _, rule := range rules[:3] {
		assert.False(t, rule.accepts("A"), rule.Name)
		assert.False(t, rule.accepts("Abc"), rule.Name)
		assert.True(t, rule.accepts("Abcd"), rule.Name)
		assert.False(t, rule.accepts(strings.Repeat("a", 100)), rule.Name)
		assert.True(t, rule.accepts(strings.Repeat("a", 99)), rule.Name)
	}

	// Checkbox labels may be three characters long.
	assert.True(t, rules[3].accepts("Yes"))
	assert.False(t, rules[3].accepts("No"))

	// "A:" is too short for the colon pattern to claim; only the fallback sees it.
	_, claimed := rules[0].Match("A:")
	assert.False(t, claimed)

	long := "Named " + strings.Repeat("x", 100)
	for _, line := range []string{long + ":", long + " ____", "1. " + long, "☐ " + long} {
		_, ok := classifier.Classify(line)
		assert.False(t, ok, "label over 100 characters must be rejected: %q", line[:20])
	}
}

func TestClassifier_RejectedClaimDoesNotFallThrough(t *testing.T) {
	classifier := NewDefault()

	// The colon rule claims the line, rejects the short label, and the
	// fallback rule must not rescue it.
	_, ok := classifier.Classify("Zip:")
	assert.False(t, ok)
}

func TestClassifier_EndToEndScenario(t *testing.T) {
	classifier := NewDefault()
	text := strings.Join([]string{
		"Named Insured:",
		"Address ________",
		"1. Policy Number",
		"☐ Yes",
		"Effective Date: 01/01/2024",
	}, "\n")

	got := classifier.ClassifyText(text)

	want := []Candidate{
		{Name: "Named Insured", Rule: RuleColon},
		{Name: "Address", Rule: RuleUnderscore},
		{Name: "Policy Number", Rule: RuleNumbered},
		{Name: "Yes", Rule: RuleCheckbox},
		{Name: "Effective Date", Rule: RuleFallback},
	}
	assert.Equal(t, want, got)
}

func TestClassifier_ZeroFieldParagraph(t *testing.T) {
	classifier := NewDefault()
	text := "This policy is issued in reliance upon the statements in the application.\n" +
		"coverage is subject to all terms and conditions of the policy.\n\n" +
		"Please read your policy carefully"

	assert.Empty(t, classifier.ClassifyText(text))
}

func TestClassifier_FallbackOptions(t *testing.T) {
	classifier, err := New(Options{FallbackMaxWords: 2, FallbackMaxLen: 15})
	require.NoError(t, err)

	got, ok := classifier.Classify("Effective Date: 01/01/2024")
	require.True(t, ok)
	assert.Equal(t, "Effective Date", got.Name)

	_, ok = classifier.Classify("Date Of Birth: 01/01/1990")
	assert.False(t, ok, "three words exceed the configured limit")

	_, ok = classifier.Classify("Occupations: none")
	assert.True(t, ok)

	_, ok = classifier.Classify("Beneficiaryname: none")
	assert.False(t, ok, "15 characters reach the configured limit")
}

func TestClassifier_ExtraCheckboxGlyphs(t *testing.T) {
	_, ok := NewDefault().Classify("■ Owner")
	assert.False(t, ok)

	classifier, err := New(Options{
		FallbackMaxWords:    DefaultFallbackMaxWords,
		FallbackMaxLen:      DefaultFallbackMaxLen,
		ExtraCheckboxGlyphs: "■-",
	})
	require.NoError(t, err)

	got, ok := classifier.Classify("■ Owner")
	require.True(t, ok)
	assert.Equal(t, RuleCheckbox, got.Rule)

	got, ok = classifier.Classify("- Tenant")
	require.True(t, ok)
	assert.Equal(t, "Tenant", got.Name)
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, Options{FallbackMaxWords: 0, FallbackMaxLen: 100}.Validate())
	assert.Error(t, Options{FallbackMaxWords: 8, FallbackMaxLen: 1}.Validate())

	_, err := New(Options{})
	assert.Error(t, err)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", ""}, SplitLines("a\r\nb\rc\n"))
}

func TestRuleID_String(t *testing.T) {
	assert.Equal(t, "colon", RuleColon.String())
	assert.Equal(t, "fallback", RuleFallback.String())
	assert.Equal(t, "none", RuleNone.String())

	text, err := RuleCheckbox.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "checkbox", string(text))
}
