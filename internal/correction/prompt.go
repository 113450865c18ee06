package correction

import (
	"fmt"
	"strings"

	"ipril-bot/internal/lang"
)

// LabelMode decides whether the correction marker is translated into the target language.
type LabelMode string

const (
	LabelLocalized LabelMode = "localized"
	LabelLiteral   LabelMode = "literal"
)

func ParseLabelMode(s string) (LabelMode, error) {
	switch m := LabelMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", LabelLocalized:
		return LabelLocalized, nil
	case LabelLiteral:
		return LabelLiteral, nil
	default:
		return "", fmt.Errorf("unknown label mode %q, want %s or %s", s, LabelLocalized, LabelLiteral)
	}
}

func (m LabelMode) Label(code lang.Code) string {
	if m == LabelLiteral {
		return lang.LiteralLabel
	}
	return code.Label()
}

const systemPromptTemplate = `You are a grammar correction assistant. The user is practising %[1]s.
1. Correct the grammar mistakes in the user's latest message while keeping its meaning and its language.
2. Put the corrected text in square brackets, starting with the label "%[2]s".
3. After the brackets ask exactly one short, friendly follow-up question in %[1]s about what the user wrote.
Always answer in %[1]s and use exactly this format:
[%[2]s CORRECTED_TEXT] FOLLOW_UP_QUESTION

If the message has no mistakes, repeat it unchanged inside the brackets.`

// SystemPrompt builds the instruction message for the target language.
func SystemPrompt(code lang.Code, label string) string {
	return fmt.Sprintf(systemPromptTemplate, code.Name(), label)
}
