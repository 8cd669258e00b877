// Package rules normalizes recognized speech before wake-phrase matching.
//
// A rules file holds one rule per line:
//
//	hey iris => hey aris          literal, whole words, case-insensitive
//	s/\bhey,?\s+a\s*ris\b/hey aris/g  sed-style regular expression
//
// Blank lines and lines starting with '#' are ignored.
package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const defaultIterationLimit = 30

// Rule rewrites a transcript. changed reports whether output differs.
type Rule interface {
	Apply(input string) (output string, changed bool)
}

// RuleParser parses one line into a Rule.
type RuleParser interface {
	CanParse(line string) bool
	Parse(line string) (Rule, error)
}

// Engine applies rules repeatedly until the text stops changing.
type Engine struct {
	rules          []Rule
	iterationLimit int
}

// NewEngine builds an engine from an optional rules file plus alias rules that
// map each alias onto target. A missing file is not an error.
func NewEngine(path string, iterationLimit int, target string, aliases []string) (*Engine, error) {
	rules, err := loadFile(path, DefaultParsers())
	if err != nil {
		return nil, err
	}

	aliasRules, err := AliasRules(target, aliases)
	if err != nil {
		return nil, err
	}

	return newEngine(append(aliasRules, rules...), iterationLimit), nil
}

// Parse builds an engine from rules text using parsers, or DefaultParsers when
// none are given.
func Parse(contents string, iterationLimit int, parsers ...RuleParser) (*Engine, error) {
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}
	rules, err := parseRules(contents, parsers)
	if err != nil {
		return nil, err
	}
	return newEngine(rules, iterationLimit), nil
}

func newEngine(rules []Rule, iterationLimit int) *Engine {
	if iterationLimit <= 0 {
		iterationLimit = defaultIterationLimit
	}
	return &Engine{rules: rules, iterationLimit: iterationLimit}
}

// Len reports how many rules are loaded.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply runs every rule in order, repeating while any rule changes the text.
// Rule sets that never settle stop at the iteration limit.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.iterationLimit; i++ {
		changed := false
		for _, rule := range e.rules {
			if next, ok := rule.Apply(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			return result, nil
		}
	}

	slog.Debug("transcript rules did not settle", "limit", e.iterationLimit, "text", result)
	return result, nil
}

// AliasRules maps every alias onto target as whole-word literal rules.
func AliasRules(target string, aliases []string) ([]Rule, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, nil
	}

	out := make([]Rule, 0, len(aliases))
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		// An alias inside the target would rewrite its own output forever.
		if alias == "" || strings.Contains(strings.ToLower(target), strings.ToLower(alias)) {
			continue
		}
		rule, err := newLiteralRule(alias, target)
		if err != nil {
			return nil, fmt.Errorf("wake alias %q: %w", alias, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func loadFile(path string, parsers []RuleParser) ([]Rule, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	rules, err := parseRules(string(contents), parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return rules, nil
}

func parseRules(contents string, parsers []RuleParser) ([]Rule, error) {
	lines := strings.Split(contents, "\n")
	rules := make([]Rule, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed := false
		for _, parser := range parsers {
			if !parser.CanParse(line) {
				continue
			}
			rule, err := parser.Parse(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", index+1, err)
			}
			rules = append(rules, rule)
			parsed = true
			break
		}

		if !parsed {
			return nil, fmt.Errorf("line %d: unsupported rule format", index+1)
		}
	}

	return rules, nil
}

// DefaultParsers returns the regex parser followed by the literal parser.
func DefaultParsers() []RuleParser {
	return []RuleParser{regexRuleParser{}, literalRuleParser{}}
}
