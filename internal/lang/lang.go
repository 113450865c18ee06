// Package lang holds the fixed set of languages the bot can correct and talk in.
package lang

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Code is a two-letter language code from the supported set.
type Code string

const (
	English Code = "en"
	Spanish Code = "es"
	French  Code = "fr"
	German  Code = "de"
	Italian Code = "it"
	Russian Code = "ru"

	Default = English
)

// ErrInvalidLanguage is returned for codes outside the supported set.
var ErrInvalidLanguage = errors.New("invalid language")

// LiteralLabel is the untranslated correction marker.
const LiteralLabel = "Correction:"

type info struct {
	name   string
	native string
	flag   string
	label  string
}

var supported = []Code{English, Spanish, French, German, Italian, Russian}

var catalogue = map[Code]info{
	English: {name: "English", native: "English", flag: "🇬🇧", label: "Correction:"},
	Spanish: {name: "Spanish", native: "Español", flag: "🇪🇸", label: "Corrección:"},
	French:  {name: "French", native: "Français", flag: "🇫🇷", label: "Correction:"},
	German:  {name: "German", native: "Deutsch", flag: "🇩🇪", label: "Korrektur:"},
	Italian: {name: "Italian", native: "Italiano", flag: "🇮🇹", label: "Correzione:"},
	Russian: {name: "Russian", native: "Русский", flag: "🇷🇺", label: "Исправление:"},
}

// Supported returns the codes in display order.
func Supported() []Code {
	return append([]Code(nil), supported...)
}

// Codes returns the supported codes as plain strings.
func Codes() []string {
	return lo.Map(supported, func(c Code, _ int) string {
		return string(c)
	})
}

// Parse normalizes s and checks it against the supported set.
func Parse(s string) (Code, error) {
	c := Code(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalogue[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, s)
	}
	return c, nil
}

// Valid reports whether c belongs to the supported set.
func (c Code) Valid() bool {
	_, ok := catalogue[c]
	return ok
}

// Name is the English display name, e.g. "Spanish".
func (c Code) Name() string {
	if i, ok := catalogue[c]; ok {
		return i.name
	}
	return strings.ToUpper(string(c))
}

// Native is the name of the language in the language itself.
func (c Code) Native() string {
	if i, ok := catalogue[c]; ok {
		return i.native
	}
	return c.Name()
}

func (c Code) Flag() string {
	return catalogue[c].flag
}

// Label is the correction marker phrased in the language itself.
func (c Code) Label() string {
	if i, ok := catalogue[c]; ok {
		return i.label
	}
	return LiteralLabel
}

// Labels returns every known correction marker, literal one first, without duplicates.
func Labels() []string {
	labels := []string{LiteralLabel}
	for _, c := range supported {
		labels = append(labels, catalogue[c].label)
	}
	return lo.Uniq(labels)
}
