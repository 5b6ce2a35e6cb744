// Package dispatch turns a prefixed message into at most one command
// handler invocation.
package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/edgard/whatsdex/internal/message"
)

// Parser strips the configured prefix and splits the command from its args.
type Parser struct {
	prefix *regexp.Regexp
}

// NewParser compiles pattern, anchoring it at the start of the text.
func NewParser(pattern string) (*Parser, error) {
	if pattern == "" {
		return nil, fmt.Errorf("prefix pattern cannot be empty")
	}
	if !strings.HasPrefix(pattern, "^") {
		pattern = "^(?:" + pattern + ")"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid prefix pattern: %w", err)
	}
	return &Parser{prefix: re}, nil
}

// Parse returns the zero Used when text is not a command.
func (p *Parser) Parse(text string) message.Used {
	text = strings.TrimLeft(text, " \t\n")
	loc := p.prefix.FindStringIndex(text)
	if loc == nil || loc[0] != 0 || loc[1] == 0 {
		return message.Used{}
	}

	fields := strings.Fields(text[loc[1]:])
	if len(fields) == 0 {
		return message.Used{}
	}
	// A space between prefix and command is tolerated.
	return message.Used{
		Prefix:  text[:loc[1]],
		Command: fields[0],
		Args:    fields[1:],
	}
}
