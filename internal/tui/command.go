package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

var commandAliases = map[string]string{
	"q":   "quit",
	"h":   "help",
	"min": "minimize",
	"max": "restore",
	"s":   "search",
	"ra":  "read-all",
}

// ParseCommand parses a command string (without the leading ':'). Aliases
// resolve to their full name.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	if full, ok := commandAliases[name]; ok {
		name = full
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}
