package dispatcher

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"ipril-bot/internal/lang"
)

type Command string

const (
	StartCommand           Command = "start"
	HelpCommand            Command = "help"
	SetLanguageCommand     Command = "setlang"
	CurrentLanguageCommand Command = "currentlang"
)

var globalCommandList = []Command{
	StartCommand, SetLanguageCommand, CurrentLanguageCommand, HelpCommand,
}

// Commands returns every command the bot understands, in menu order.
func Commands() []Command {
	return append([]Command(nil), globalCommandList...)
}

func buildCommandList(commands []Command) []string {
	return lo.Map(commands, func(c Command, _ int) string {
		return fmt.Sprintf("/%s", c)
	})
}

// describeCommands renders "/cmd - description" lines in the reply language.
func describeCommands(r *replies) string {
	lines := lo.Map(globalCommandList, func(c Command, _ int) string {
		return fmt.Sprintf("/%s - %s", c, r.Commands[c])
	})
	return strings.Join(lines, "\n")
}

func describeLanguages() string {
	lines := lo.Map(lang.Supported(), func(c lang.Code, _ int) string {
		return fmt.Sprintf("%s %s (%s)", c.Flag(), c.Native(), c)
	})
	return strings.Join(lines, "\n")
}

// Description is the menu text for c in the given language.
func Description(c Command, code lang.Code) string {
	return repliesFor(code).Commands[c]
}
