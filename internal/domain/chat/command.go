package chat

import (
	"strconv"
	"strings"
)

// CommandKind identifies a command sent directly to the bot.
type CommandKind int

// Recognised commands.
const (
	Unknown CommandKind = iota
	KarmaAll
	KarmaTerm
	SetTerm
)

// Command is a parsed direct message.
type Command struct {
	Kind  CommandKind
	Term  string
	Value int64
}

// DirectMessage reports whether text is addressed to nick and returns the part
// meant for the bot. Messages sent to nick itself are returned whole; channel
// lines must start with nick followed by at least one non-alphanumeric rune,
// which is stripped along with the nick.
func DirectMessage(nick, target, text string) (string, bool) {
	if nick == "" {
		return "", false
	}
	if strings.EqualFold(target, nick) {
		return text, true
	}
	if len(text) <= len(nick) || !strings.EqualFold(text[:len(nick)], nick) {
		return "", false
	}

	rest := text[len(nick):]
	trimmed := strings.TrimLeftFunc(rest, func(r rune) bool { return !isAlnum(r) })
	if len(trimmed) == len(rest) {
		// "karmabots" is not "karmabot: ..."
		return "", false
	}
	return trimmed, true
}

// ParseCommand parses the text of a direct message.
//
//	karma               every score
//	karma <term>        one score
//	set <term> <value>  overwrite a score
func ParseCommand(dm string) Command {
	fields := strings.Fields(dm)
	if len(fields) == 0 {
		return Command{Kind: Unknown}
	}

	switch fields[0] {
	case "karma":
		if len(fields) == 1 {
			return Command{Kind: KarmaAll}
		}
		term := leadingAlnum(fields[1])
		if term == "" {
			return Command{Kind: KarmaAll}
		}
		return Command{Kind: KarmaTerm, Term: term}
	case "set":
		if len(fields) != 3 {
			return Command{Kind: Unknown}
		}
		v, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return Command{Kind: Unknown}
		}
		return Command{Kind: SetTerm, Term: fields[1], Value: v}
	}
	return Command{Kind: Unknown}
}

func leadingAlnum(s string) string {
	for i, r := range s {
		if !isAlnum(r) {
			return s[:i]
		}
	}
	return s
}

