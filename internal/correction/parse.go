package correction

import "strings"

// ParseReply splits "[LABEL corrected] follow-up" into its parts. Brackets nested
// inside the correction are kept.
//
// The bracket may be preceded by chatter only if it carries one of labels; a bare
// bracket has to open the reply. Anything else falls back to the raw text as the
// correction with no follow-up.
func ParseReply(raw string, labels ...string) Result {
	fallback := Result{Corrected: raw, Raw: raw}

	text := strings.TrimSpace(raw)
	open := strings.IndexByte(text, '[')
	if open < 0 {
		return fallback
	}
	closing := matchingBracket(text, open)
	if closing < 0 {
		return fallback
	}

	label, body := stripLabel(strings.TrimSpace(text[open+1:closing]), labels)
	if body == "" {
		return fallback
	}
	if label == "" && open > 0 {
		return fallback
	}

	return Result{
		Corrected: body,
		FollowUp:  strings.TrimSpace(text[closing+1:]),
		Label:     label,
		Raw:       raw,
		Parsed:    true,
	}
}

func stripLabel(inner string, labels []string) (string, string) {
	for _, l := range labels {
		if l == "" || len(inner) < len(l) {
			continue
		}
		if strings.EqualFold(inner[:len(l)], l) {
			return l, strings.TrimSpace(inner[len(l):])
		}
	}
	return "", inner
}

// matchingBracket returns the index of the ']' closing the '[' at open, or -1
// when the brackets never balance.
func matchingBracket(text string, open int) int {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
