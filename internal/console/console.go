// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package console implements the operator console: a line-oriented loop that
// calls functions registered by name.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/holobot/pkg/errutil"
)

// Error codes for console failures.
const (
	CodeSyntax            = "CONSOLE_SYNTAX"
	CodeUnknownFunction   = "CONSOLE_UNKNOWN_FUNCTION"
	CodeDuplicateFunction = "CONSOLE_DUPLICATE_FUNCTION"
	CodeUsage             = "CONSOLE_USAGE"
)

// Prompt is written before each input line.
const Prompt = ">>> "

// Func is a console function. Output goes to w.
type Func func(ctx context.Context, w io.Writer, args []string) error

type entry struct {
	fn   Func
	help string
}

// Console dispatches input lines to registered functions.
type Console struct {
	mu     sync.RWMutex
	funcs  map[string]entry
	out    io.Writer
	logger *slog.Logger
}

// New creates a console writing to out. logger may be nil.
func New(out io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{funcs: make(map[string]entry), out: out, logger: logger}
}

// Register adds a function under name.
func (c *Console) Register(name, help string, fn Func) error {
	if name == "" || strings.ContainsFunc(name, isSpace) {
		return oops.Code(CodeSyntax).With("name", name).Errorf("console function name must be a single word")
	}
	if fn == nil {
		return oops.Code(CodeSyntax).With("name", name).Errorf("console function %s is nil", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.funcs[name]; ok {
		return oops.Code(CodeDuplicateFunction).With("name", name).Errorf("console function %s is already registered", name)
	}
	c.funcs[name] = entry{fn: fn, help: help}
	return nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Names returns the registered function names, sorted.
func (c *Console) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.funcs))
	for name := range c.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Help returns the help text of a registered function.
func (c *Console) Help(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.funcs[name]
	return e.help, ok
}

// Process runs one input line. Blank input does nothing. An unknown name prints
// a notice and fails with CONSOLE_UNKNOWN_FUNCTION.
func (c *Console) Process(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	name, args, err := parseLine(input)
	if err != nil {
		return err
	}

	c.mu.RLock()
	e, ok := c.funcs[name]
	c.mu.RUnlock()
	if !ok {
		fmt.Fprintf(c.out, "There is no '%s' command.\n", name)
		return oops.Code(CodeUnknownFunction).With("name", name).Errorf("unknown console function %s", name)
	}
	return e.fn(ctx, c.out, args)
}

// Run reads lines from r until it ends or ctx is done. Function failures are
// printed and logged; the loop continues.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(c.out, Prompt)
		if !scanner.Scan() {
			break
		}
		err := c.Process(ctx, scanner.Text())
		switch {
		case err == nil, errutil.HasCode(err, CodeUnknownFunction):
		case errutil.HasCode(err, CodeUsage), errutil.HasCode(err, CodeSyntax):
			fmt.Fprintln(c.out, err.Error())
		default:
			fmt.Fprintf(c.out, "error: %v\n", err)
			errutil.LogError(ctx, c.logger, "console function failed", err)
		}
	}
	fmt.Fprintln(c.out)
	if err := scanner.Err(); err != nil {
		return oops.Wrapf(err, "read console input")
	}
	return nil
}

// usage returns a CONSOLE_USAGE error showing how to call name.
func usage(name, synopsis string) error {
	return oops.Code(CodeUsage).With("name", name).Errorf("usage: %s %s", name, synopsis)
}
