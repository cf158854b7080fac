// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package eventtest provides test helpers for event dispatch.
package eventtest

import (
	"context"
	"sync"

	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/event"
)

// Output kinds recorded by RecordingSink.
const (
	OutputTyping = "typing"
	OutputNotice = "notice"
	OutputReply  = "reply"
)

// Output is one call made on a RecordingSink.
type Output struct {
	Kind      string
	ChannelID directory.ID
	MessageID string
	Text      string
}

// RecordingSink is a ReplySink that records every call in order.
// Err, when set, is returned from every call after it is recorded.
type RecordingSink struct {
	mu      sync.Mutex
	outputs []Output
	Err     error
}

// Typing records a typing indicator.
func (s *RecordingSink) Typing(_ context.Context, channelID directory.ID) error {
	return s.record(Output{Kind: OutputTyping, ChannelID: channelID})
}

// SendNotice records a channel notice.
func (s *RecordingSink) SendNotice(_ context.Context, channelID directory.ID, text string) error {
	return s.record(Output{Kind: OutputNotice, ChannelID: channelID, Text: text})
}

// SendReply records a reply.
func (s *RecordingSink) SendReply(_ context.Context, msg event.Message, text string) error {
	return s.record(Output{Kind: OutputReply, ChannelID: msg.ChannelID, MessageID: msg.ID, Text: text})
}

func (s *RecordingSink) record(o Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = append(s.outputs, o)
	return s.Err
}

// Outputs returns a copy of the recorded calls.
func (s *RecordingSink) Outputs() []Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Output, len(s.outputs))
	copy(out, s.outputs)
	return out
}

// Texts returns the text of every notice and reply, in order.
func (s *RecordingSink) Texts() []string {
	var texts []string
	for _, o := range s.Outputs() {
		if o.Kind != OutputTyping {
			texts = append(texts, o.Text)
		}
	}
	return texts
}

// Connections is a ConnectionOracle backed by a set of connected communities.
type Connections struct {
	mu        sync.RWMutex
	connected map[directory.ID]bool
}

// NewConnections creates an oracle with the given communities connected.
func NewConnections(ids ...directory.ID) *Connections {
	c := &Connections{connected: make(map[directory.ID]bool)}
	for _, id := range ids {
		c.connected[id] = true
	}
	return c
}

// Set marks a community connected or not.
func (c *Connections) Set(id directory.ID, connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected[id] = connected
}

// HasActiveConnection reports whether id is connected.
func (c *Connections) HasActiveConnection(_ context.Context, id directory.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected[id]
}
