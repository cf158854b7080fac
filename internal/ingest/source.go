// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package ingest adapts a stream of recorded platform events to the bot. Each
// input line is one JSON object; bot output is written back as JSON lines.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/holobot/internal/bot"
	"github.com/holomush/holobot/internal/event"
	"github.com/holomush/holobot/internal/observability"
	"github.com/holomush/holobot/pkg/errutil"
)

// CodeMalformedEvent marks an input line that cannot be decoded.
const CodeMalformedEvent = "MALFORMED_EVENT"

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// envelope is the wire form of one inbound event.
type envelope struct {
	Kind     string              `json:"kind"`
	Message  *event.Message      `json:"message,omitempty"`
	Reaction *event.Reaction     `json:"reaction,omitempty"`
	Member   *event.MemberChange `json:"member,omitempty"`
}

// Decode parses one input line into an inbound event.
func Decode(line []byte) (bot.Inbound, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return bot.Inbound{}, oops.Code(CodeMalformedEvent).Wrapf(err, "decode event")
	}
	kind, err := event.ParseKind(env.Kind)
	if err != nil {
		return bot.Inbound{}, err
	}
	return bot.Inbound{
		Kind:     kind,
		Message:  env.Message,
		Reaction: env.Reaction,
		Member:   env.Member,
	}, nil
}

// Source reads inbound events from a line-oriented reader.
type Source struct {
	r       io.Reader
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSource creates a source over r. metrics may be nil.
func NewSource(r io.Reader, logger *slog.Logger, metrics *observability.Metrics) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{r: r, logger: logger, metrics: metrics}
}

// Run decodes lines and sends them to out until the input ends or ctx is done.
// Blank lines and lines starting with '#' are skipped; lines that fail to decode
// are logged and skipped. out is closed when Run returns.
func (s *Source) Run(ctx context.Context, out chan<- bot.Inbound) error {
	defer close(out)

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		in, err := Decode(line)
		if err != nil {
			errutil.LogError(ctx, s.logger, "skipping inbound event", err, "line", lineNo)
			if s.metrics != nil {
				s.metrics.EventsDropped.WithLabelValues("decode").Inc()
			}
			continue
		}

		select {
		case out <- in:
		case <-ctx.Done():
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return oops.Code(CodeMalformedEvent).With("line", lineNo+1).Wrapf(err, "read events")
	}
	return nil
}
