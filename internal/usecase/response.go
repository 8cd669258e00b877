package usecase

import (
	"aris/internal/directive"
	"aris/internal/domain"
	"aris/internal/ports"
)

// responseFinalizer turns raw model output into display text, applying any
// effect directives it carries.
type responseFinalizer struct {
	effects ports.EffectApplier
}

func newResponseFinalizer(effects ports.EffectApplier) responseFinalizer {
	return responseFinalizer{effects: effects}
}

func (f responseFinalizer) Finalize(raw string) string {
	result := directive.Parse(raw)
	if f.effects != nil {
		for _, d := range result.Directives {
			if d.Kind == domain.EffectNone {
				f.effects.Clear()
				continue
			}
			f.effects.Add(d.Kind, d.Duration)
		}
	}
	return result.CleanedText
}
