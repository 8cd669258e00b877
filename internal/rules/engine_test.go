package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEngineLiteralAndRegexRules(t *testing.T) {
	t.Parallel()

	rulesPath := writeRules(t, `
# literal
hey iris => hey aris
# regex with default case-insensitive
s/\bhey,?\s+a\s*ris\b/hey aris/g
`)

	engine, err := NewEngine(rulesPath, 30, "", nil)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	tests := map[string]string{
		"Hey Iris, what is this":   "hey aris, what is this",
		"hey, a ris look at this":  "hey aris look at this",
		"they irisated the flower": "they irisated the flower",
	}
	for input, want := range tests {
		output, err := engine.Apply(input)
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if output != want {
			t.Fatalf("Apply(%q) = %q, want %q", input, output, want)
		}
	}
}

func TestEngineIteratesUntilStable(t *testing.T) {
	t.Parallel()

	engine, err := Parse("a => b\nb => c\n", 5)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	output, err := engine.Apply("a")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "c" {
		t.Fatalf("expected c, got %q", output)
	}
}

func TestEngineStopsAtIterationLimit(t *testing.T) {
	t.Parallel()

	engine, err := Parse("s/x/xx/g", 3)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	output, err := engine.Apply("x")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "xxxxxxxx" {
		t.Fatalf("expected three doublings, got %q", output)
	}
}

func TestEngineMissingFileIsIdentity(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(filepath.Join(t.TempDir(), "missing.rules"), 0, "", nil)
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if engine.Len() != 0 {
		t.Fatalf("expected no rules, got %d", engine.Len())
	}
	if output, _ := engine.Apply("hey aris"); output != "hey aris" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestEngineMalformedFileFails(t *testing.T) {
	t.Parallel()

	_, err := NewEngine(writeRules(t, "not-a-rule"), 0, "", nil)
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected line error, got %v", err)
	}
}

func TestEngineWakeAliases(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine("", 0, "hey aris", []string{"hey iris", " hey harris ", "aris", ""})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if engine.Len() != 2 {
		t.Fatalf("expected two alias rules, got %d", engine.Len())
	}

	output, _ := engine.Apply("HEY HARRIS tell me a joke")
	if output != "hey aris tell me a joke" {
		t.Fatalf("unexpected output: %q", output)
	}
	output, _ = engine.Apply("hey aris already")
	if output != "hey aris already" {
		t.Fatalf("target should be stable, got %q", output)
	}
}

func TestLiteralRuleMatchesWholeWordsAndFlexibleSpacing(t *testing.T) {
	t.Parallel()

	rule, err := newLiteralRule("hey iris", "hey aris")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if output, changed := rule.Apply("hey   iris"); !changed || output != "hey aris" {
		t.Fatalf("unexpected output: %q changed=%v", output, changed)
	}
	if output, changed := rule.Apply("Hey, Iris. Lights on"); !changed || output != "hey aris. Lights on" {
		t.Fatalf("punctuation between words should match, got %q changed=%v", output, changed)
	}
	if _, changed := rule.Apply("hey irises"); changed {
		t.Fatalf("partial word should not match")
	}
}

func TestLiteralRuleReplacementIsLiteral(t *testing.T) {
	t.Parallel()

	rule, err := newLiteralRule("cost", "$1")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if output, _ := rule.Apply("the cost"); output != "the $1" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestEngineSupportsParserExtension(t *testing.T) {
	t.Parallel()

	parsers := append([]RuleParser{prefixRuleParser{}}, DefaultParsers()...)
	engine, err := Parse("prefix:Hello=>Howdy", 5, parsers...)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	output, err := engine.Apply("hello world")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "Howdy world" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestRegexRuleWithoutGlobalReplacesFirstMatchOnly(t *testing.T) {
	t.Parallel()

	rule, err := parseRegexRule(`s/foo/bar/`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	output, changed := rule.Apply("foo foo")
	if !changed {
		t.Fatalf("expected changed=true")
	}
	if output != "bar foo" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestRegexRuleCaptureGroupsAndEscapedDelimiter(t *testing.T) {
	t.Parallel()

	rule, err := parseRegexRule(`s/(\w+)\/(\w+)/$2 over $1/`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	output, _ := rule.Apply("see a/b now")
	if output != "see b over a now" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestRegexRuleCaseSensitiveFlag(t *testing.T) {
	t.Parallel()

	rule, err := parseRegexRule(`s/Aris/ARIS/gI`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, changed := rule.Apply("aris"); changed {
		t.Fatalf("case-sensitive rule matched lowercase input")
	}
	if output, _ := rule.Apply("Aris"); output != "ARIS" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestParseRegexRuleUnsupportedFlag(t *testing.T) {
	t.Parallel()

	_, err := parseRegexRule(`s/foo/bar/x`)
	if err == nil {
		t.Fatalf("expected unsupported flag error")
	}
}

func TestParseRulesUnsupportedLine(t *testing.T) {
	t.Parallel()

	_, err := parseRules("not-a-rule", DefaultParsers())
	if err == nil {
		t.Fatalf("expected unsupported rule format error")
	}
}

func writeRules(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.rules")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}
	return path
}

type prefixRuleParser struct{}

func (prefixRuleParser) CanParse(line string) bool {
	return strings.HasPrefix(line, "prefix:")
}

func (prefixRuleParser) Parse(line string) (Rule, error) {
	from, to, ok := strings.Cut(strings.TrimPrefix(line, "prefix:"), "=>")
	if !ok {
		return nil, errors.New("invalid prefix rule")
	}
	return newLiteralRule(from, to)
}
