package command

import "strings"

// Prefix is the chat command every subcommand hangs off.
const Prefix = "/combot"

// ParseResult holds the parsed subcommand name and arguments from a text line.
type ParseResult struct {
	// Command is the subcommand word, lowercased.
	Command string
	// Args are the remaining words after the subcommand.
	Args []string
	// RawArgs is the raw text after the subcommand, preserving inner spacing.
	RawArgs string
}

// Parse splits a text line into a subcommand and arguments. A leading
// "/combot" (or "combot") is dropped.
//
// Postcondition: Returns a ParseResult. If line holds no subcommand, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if first, rest, _ := strings.Cut(line, " "); strings.EqualFold(first, Prefix) || strings.EqualFold(first, Prefix[1:]) {
		line = strings.TrimSpace(rest)
	}
	if line == "" {
		return ParseResult{}
	}

	cmd, rest, found := strings.Cut(line, " ")
	if !found {
		return ParseResult{Command: strings.ToLower(cmd)}
	}
	rest = strings.TrimSpace(rest)

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}
	return ParseResult{
		Command: strings.ToLower(cmd),
		Args:    args,
		RawArgs: rest,
	}
}
