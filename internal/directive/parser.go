// Package directive implements the bracket-tag protocol the AI uses to
// request visual effects inline with its prose, e.g. "Nice! [EFFECT:HEARTS]".
package directive

import (
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"

	"aris/internal/domain"
)

// ConfettiDuration is how long a confetti burst stays on screen.
const ConfettiDuration = 5 * time.Second

// clearTag maps to domain.EffectNone.
const clearTag = "CLEAR"

// tagRe matches every tag of the grammar, recognized or not.
var tagRe = regexp.MustCompile(`(?i)\[EFFECT:([A-Z]+)\]`)

var (
	spaceRunRe     = regexp.MustCompile(`[ \t]{2,}`)
	lineTrailingRe = regexp.MustCompile(`[ \t]+\n`)
)

// Result is the outcome of parsing one AI response.
type Result struct {
	Directives  []domain.Directive
	CleanedText string
}

// Parse extracts effect directives from text and returns the text with every
// tag removed. Each recognized kind appears at most once, in order of first
// occurrence. Unknown names are dropped without error. Removal repeats until
// no tag remains, so nested input such as "[EFFECT:[EFFECT:X]FIRE]" cannot
// reassemble a tag; a tag reassembled that way is applied like any other.
func Parse(text string) Result {
	var kinds []domain.EffectKind
	cleaned := strip(text, func(name string) {
		if kind, ok := kindForTag(name); ok {
			kinds = append(kinds, kind)
		}
	})

	directives := lo.Map(lo.Uniq(kinds), func(kind domain.EffectKind, _ int) domain.Directive {
		return domain.Directive{Kind: kind, Duration: defaultDuration(kind)}
	})

	return Result{
		Directives:  directives,
		CleanedText: cleaned,
	}
}

// Clean removes every directive tag and tidies the whitespace left behind.
func Clean(text string) string {
	return strip(text, func(string) {})
}

// strip removes tags pass by pass, reporting each tag name, then collapses
// runs of horizontal whitespace to one space.
func strip(text string, seen func(name string)) string {
	for tagRe.MatchString(text) {
		for _, match := range tagRe.FindAllStringSubmatch(text, -1) {
			seen(match[1])
		}
		text = tagRe.ReplaceAllString(text, "")
	}
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineTrailingRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

func kindForTag(name string) (domain.EffectKind, bool) {
	if strings.EqualFold(name, clearTag) {
		return domain.EffectNone, true
	}
	kind, ok := domain.ParseEffectKind(name)
	if !ok || kind == domain.EffectNone {
		return "", false
	}
	return kind, true
}

func defaultDuration(kind domain.EffectKind) time.Duration {
	if kind == domain.EffectConfetti {
		return ConfettiDuration
	}
	return 0
}
