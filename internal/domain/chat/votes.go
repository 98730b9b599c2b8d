// Package chat turns channel traffic into karma votes, commands and plugin calls.
package chat

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/okian/karmabot/internal/domain/types"
)

const (
	actionPrefix = "\x01ACTION "
	actionMarker = '\x01'

	upvote   = "++"
	downvote = "--"
)

// isAlnum matches letters, numbers and combining alphabetic marks, so "blɸwback" is one word.
func isAlnum(r rune) bool {
	return unicode.In(r, unicode.L, unicode.N, unicode.Other_Alphabetic)
}

func isVoteRune(r rune) bool {
	return isAlnum(r) || r == '+' || r == '-'
}

// ParseVotes returns the votes cast in one line of chat, in order of appearance.
// A term repeated in the line yields one bias per occurrence.
func ParseVotes(text string) []types.Bias {
	if b, ok := parseAction(text); ok {
		return []types.Bias{b}
	}

	var votes []types.Bias
	for word := range words(text) {
		if b, ok := parseVote(word); ok {
			votes = append(votes, b)
		}
	}
	return votes
}

// parseAction recognises "/me hugs term" and "/me slaps term" with a single-word term.
func parseAction(text string) (types.Bias, bool) {
	body, ok := strings.CutPrefix(text, actionPrefix)
	if !ok {
		return types.Bias{}, false
	}
	end := strings.IndexRune(body, actionMarker)
	if end < 0 {
		return types.Bias{}, false
	}
	body = body[:end]

	var delta int64
	switch {
	case strings.HasPrefix(body, "hugs"):
		delta, body = 1, body[len("hugs"):]
	case strings.HasPrefix(body, "slaps"):
		delta, body = -1, body[len("slaps"):]
	default:
		return types.Bias{}, false
	}

	term := strings.TrimLeftFunc(body, unicode.IsSpace)
	if len(term) == len(body) || term == "" || strings.IndexFunc(term, func(r rune) bool { return !isAlnum(r) }) >= 0 {
		return types.Bias{}, false
	}
	return types.Bias{Term: term, Delta: delta}, true
}

// words yields every maximal run of vote runes that starts with an alphanumeric rune.
func words(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		i := 0
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			if !isAlnum(r) {
				i += size
				continue
			}
			start := i
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !isVoteRune(r) {
					break
				}
				i += size
			}
			if !yield(text[start:i]) {
				return
			}
		}
	}
}

// parseVote reads "term++" or "term--" off the front of a word. Anything after the
// operator is ignored, so "c++foo" still counts for c.
func parseVote(word string) (types.Bias, bool) {
	end := strings.IndexFunc(word, func(r rune) bool { return !isAlnum(r) })
	if end <= 0 {
		return types.Bias{}, false
	}
	term, rest := word[:end], word[end:]
	switch {
	case strings.HasPrefix(rest, upvote):
		return types.Bias{Term: term, Delta: 1}, true
	case strings.HasPrefix(rest, downvote):
		return types.Bias{Term: term, Delta: -1}, true
	}
	return types.Bias{}, false
}
