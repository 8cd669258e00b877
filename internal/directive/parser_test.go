package directive

import (
	"testing"

	"aris/internal/domain"
)

func TestParseCollapsesDuplicateTags(t *testing.T) {
	t.Parallel()

	result := Parse("Nice! [EFFECT:HEARTS] enjoy [EFFECT:HEARTS]")

	if len(result.Directives) != 1 || result.Directives[0].Kind != domain.EffectHearts {
		t.Fatalf("expected one hearts directive, got %+v", result.Directives)
	}
	if result.Directives[0].Duration != 0 {
		t.Fatalf("hearts should be durationless, got %s", result.Directives[0].Duration)
	}
	if result.CleanedText != "Nice! enjoy" {
		t.Fatalf("unexpected cleaned text: %q", result.CleanedText)
	}
}

func TestParseIsCaseInsensitiveAndKeepsFirstOccurrenceOrder(t *testing.T) {
	t.Parallel()

	result := Parse("[effect:fire] Hot! [EFFECT:Snow] cold [Effect:FIRE]")

	if len(result.Directives) != 2 {
		t.Fatalf("expected two directives, got %+v", result.Directives)
	}
	if result.Directives[0].Kind != domain.EffectFire || result.Directives[1].Kind != domain.EffectSnow {
		t.Fatalf("unexpected order: %+v", result.Directives)
	}
	if result.CleanedText != "Hot! cold" {
		t.Fatalf("unexpected cleaned text: %q", result.CleanedText)
	}
}

func TestParseConfettiCarriesDefaultDuration(t *testing.T) {
	t.Parallel()

	result := Parse("Party time [EFFECT:CONFETTI]")
	if len(result.Directives) != 1 || result.Directives[0].Kind != domain.EffectConfetti {
		t.Fatalf("expected confetti directive, got %+v", result.Directives)
	}
	if result.Directives[0].Duration != ConfettiDuration {
		t.Fatalf("unexpected confetti duration: %s", result.Directives[0].Duration)
	}
}

func TestParseClearMapsToNone(t *testing.T) {
	t.Parallel()

	result := Parse("All gone. [EFFECT:CLEAR]")
	if len(result.Directives) != 1 || result.Directives[0].Kind != domain.EffectNone {
		t.Fatalf("expected none directive, got %+v", result.Directives)
	}
	if result.CleanedText != "All gone." {
		t.Fatalf("unexpected cleaned text: %q", result.CleanedText)
	}
}

func TestParseIgnoresUnknownNamesButStripsTheirTags(t *testing.T) {
	t.Parallel()

	result := Parse("Hmm [EFFECT:LASERS] and [EFFECT:NONE] ok")
	if len(result.Directives) != 0 {
		t.Fatalf("expected no directives, got %+v", result.Directives)
	}
	if result.CleanedText != "Hmm and ok" {
		t.Fatalf("unexpected cleaned text: %q", result.CleanedText)
	}
}

func TestParseLeavesMalformedTagsInText(t *testing.T) {
	t.Parallel()

	result := Parse("Look [EFFECT:] here [EFFECT HEARTS]")
	if len(result.Directives) != 0 {
		t.Fatalf("expected no directives, got %+v", result.Directives)
	}
	if result.CleanedText != "Look [EFFECT:] here [EFFECT HEARTS]" {
		t.Fatalf("unexpected cleaned text: %q", result.CleanedText)
	}
}

func TestParseKeepsWordsApartWhenTagTouchesText(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Looking sharp! [EFFECT:SUNGLASSES]Those shades suit you.": "Looking sharp! Those shades suit you.",
		"Here you go [EFFECT:HEARTS]enjoy":                         "Here you go enjoy",
		"Hot [EFFECT:FIRE]   stuff":                                "Hot stuff",
		"Line one [EFFECT:RAINBOW]\nLine two":                      "Line one\nLine two",
	}
	for input, want := range cases {
		if got := Parse(input).CleanedText; got != want {
			t.Fatalf("Parse(%q) cleaned to %q, want %q", input, got, want)
		}
		if got := Clean(input); got != want {
			t.Fatalf("Clean(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseAppliesTagReassembledByRemoval(t *testing.T) {
	t.Parallel()

	result := Parse("[EFFECT:[EFFECT:X]FIRE] warm")
	if len(result.Directives) != 1 || result.Directives[0].Kind != domain.EffectFire {
		t.Fatalf("expected fire directive, got %+v", result.Directives)
	}
	if result.CleanedText != "warm" {
		t.Fatalf("unexpected cleaned text: %q", result.CleanedText)
	}
}

func TestParseIsIdempotentOnCleanedText(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Nice! [EFFECT:HEARTS] enjoy [EFFECT:HEARTS]",
		"[EFFECT:SUNGLASSES][EFFECT:NEON]Cool",
		"Line one\n[EFFECT:RAINBOW]\nLine two",
		"[EFFECT:[EFFECT:FIRE]FIRE]",
		"plain text",
		"",
	}

	for _, input := range inputs {
		input := input
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			cleaned := Parse(input).CleanedText
			if again := Parse(cleaned); len(again.Directives) != 0 {
				t.Fatalf("cleaned text %q still yields directives %+v", cleaned, again.Directives)
			}
		})
	}
}

func TestParseAllKnownKinds(t *testing.T) {
	t.Parallel()

	for _, kind := range domain.EffectKinds() {
		if kind == domain.EffectNone {
			continue
		}
		result := Parse("[EFFECT:" + string(kind) + "]")
		if len(result.Directives) != 1 || result.Directives[0].Kind != kind {
			t.Fatalf("kind %s not recognized: %+v", kind, result.Directives)
		}
		if result.CleanedText != "" {
			t.Fatalf("expected empty cleaned text, got %q", result.CleanedText)
		}
	}
}
