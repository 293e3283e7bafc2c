package domain

import (
	"strings"
	"unicode/utf8"
)

// PrefixSet holds the symbols that may open a command.
type PrefixSet struct {
	symbols  map[rune]struct{}
	fallback string
}

func NewPrefixSet(symbols, fallback string) PrefixSet {
	set := make(map[rune]struct{}, utf8.RuneCountInString(symbols))
	for _, r := range symbols {
		set[r] = struct{}{}
	}

	if fallback == "" {
		fallback = DefaultFallbackPrefix
	}

	return PrefixSet{symbols: set, fallback: fallback}
}

// Resolve returns the leading symbol of text if it belongs to the set, the fallback prefix otherwise.
func (p PrefixSet) Resolve(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if size > 0 && r != utf8.RuneError {
		if _, ok := p.symbols[r]; ok {
			return text[:size]
		}
	}

	return p.fallback
}

// Split separates the resolved prefix from the rest of text. ok is false when text does not start with it.
func (p PrefixSet) Split(text string) (prefix, rest string, ok bool) {
	prefix = p.Resolve(text)
	if !strings.HasPrefix(text, prefix) {
		return prefix, "", false
	}

	return prefix, strings.TrimPrefix(text, prefix), true
}

// ParseInvocation extracts prefix, lower-cased command name and argument text from a message text.
func ParseInvocation(text string, prefixes PrefixSet) (Invocation, bool) {
	prefix, rest, ok := prefixes.Split(text)
	if !ok {
		return Invocation{}, false
	}

	command := ParseCommand(rest)
	if command == "" {
		return Invocation{}, false
	}

	return Invocation{
		Prefix:  prefix,
		Command: command,
		Args:    ParseCommandArgs(rest),
	}, true
}

func ParseCommandArgs(args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return ""
	}

	return strings.Join(fields[1:], " ")
}

func ParseCommand(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}

	return strings.ToLower(fields[0])
}
