// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// line is one console input: a function name followed by arguments. Arguments
// are bare words or double-quoted strings with Go escapes.
type line struct {
	Name string   `parser:"@Word"`
	Args []string `parser:"@(Word | String)*"`
}

var lineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Word", Pattern: `[^\s"]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var lineParser = participle.MustBuild[line](
	participle.Lexer(lineLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace"),
)

// parseLine splits input into a function name and its arguments.
func parseLine(input string) (string, []string, error) {
	l, err := lineParser.ParseString("", input)
	if err != nil {
		return "", nil, oops.Code(CodeSyntax).With("input", input).Wrapf(err, "parse console input")
	}
	return l.Name, l.Args, nil
}
