// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ingest

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/event"
	"github.com/holomush/holobot/internal/observability"
)

// Output kinds written by WriterSink.
const (
	OutputTyping = "typing"
	OutputNotice = "notice"
	OutputReply  = "reply"
)

// Output is the wire form of one bot output.
type Output struct {
	Kind      string       `json:"kind"`
	ChannelID directory.ID `json:"channel_id"`
	MessageID string       `json:"message_id,omitempty"`
	Text      string       `json:"text,omitempty"`
}

// WriterSink is an event.ReplySink that writes each output as a JSON line.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

var _ event.ReplySink = (*WriterSink)(nil)

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

// Typing writes a typing indicator.
func (s *WriterSink) Typing(_ context.Context, channelID directory.ID) error {
	return s.write(Output{Kind: OutputTyping, ChannelID: channelID})
}

// SendNotice writes a channel notice.
func (s *WriterSink) SendNotice(_ context.Context, channelID directory.ID, text string) error {
	return s.write(Output{Kind: OutputNotice, ChannelID: channelID, Text: text})
}

// SendReply writes a reply to msg.
func (s *WriterSink) SendReply(_ context.Context, msg event.Message, text string) error {
	return s.write(Output{Kind: OutputReply, ChannelID: msg.ChannelID, MessageID: msg.ID, Text: text})
}

func (s *WriterSink) write(o Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(o); err != nil {
		observability.RecordReplyFailure(o.Kind)
		return oops.With("output", o.Kind).With("channel_id", uint64(o.ChannelID)).Wrapf(err, "write output")
	}
	return nil
}

// StaticConnections is a ConnectionOracle with a fixed set of connected communities.
type StaticConnections map[directory.ID]bool

var _ event.ConnectionOracle = StaticConnections(nil)

// NewStaticConnections marks each id connected.
func NewStaticConnections(ids ...directory.ID) StaticConnections {
	c := make(StaticConnections, len(ids))
	for _, id := range ids {
		c[id] = true
	}
	return c
}

// HasActiveConnection reports whether communityID is in the set.
func (c StaticConnections) HasActiveConnection(_ context.Context, communityID directory.ID) bool {
	return c[communityID]
}
