package usecase

import (
	"strings"

	"aris/internal/domain"
)

const persona = `You are Aris - a friendly, helpful AI vision assistant. You can see what the user shows you through their camera. Be conversational, helpful, and enthusiastic. You help with:
- Identifying objects, text, products, plants, animals
- Reading and translating text in images
- Playing games (card games, board games, video games) - give strategic advice
- Cooking help - identify ingredients, suggest recipes
- Homework and learning - explain concepts visible in images
- Shopping - compare products, read labels
- Tech support - help with device screens, error messages
- And anything else visual!

Keep responses concise but helpful. If you can't see something clearly, ask for a better angle. Be friendly and proactive with suggestions.`

const noImageNote = "(Note: No image was provided with this message. If you need to see something, ask the user to point their camera at it.)"

// effectInstructions teaches the model the directive tag grammar.
func effectInstructions() string {
	var tags []string
	for _, kind := range domain.EffectKinds() {
		if kind == domain.EffectNone {
			continue
		}
		tags = append(tags, "[EFFECT:"+strings.ToUpper(string(kind))+"]")
	}

	return "You can add fun visual effects to the user's camera view by including one of these tags anywhere in your reply: " +
		strings.Join(tags, ", ") +
		". Use [EFFECT:CLEAR] to remove all effects. Only add an effect when the user asks for one or when it clearly fits the moment."
}

// buildPrompt lays out persona, effect instructions, user context and the
// request. preamble is used verbatim; it carries its own leading newlines.
func buildPrompt(preamble string, request string, hasImage bool) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString(effectInstructions())
	b.WriteString(preamble)
	b.WriteString("\n\nUser's request: ")
	b.WriteString(request)
	if !hasImage {
		b.WriteString("\n\n")
		b.WriteString(noImageNote)
	}
	return b.String()
}
