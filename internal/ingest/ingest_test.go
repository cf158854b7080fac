// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holobot/internal/bot"
	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/event"
	"github.com/holomush/holobot/internal/observability"
	"github.com/holomush/holobot/internal/trust"
	"github.com/holomush/holobot/pkg/errutil"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestDecode(t *testing.T) {
	in, err := Decode([]byte(`{"kind":"on_message","message":{"id":"m-7","content":".ping","author_id":3,"community_id":1,"channel_id":2}}`))
	require.NoError(t, err)
	assert.Equal(t, event.KindMessage, in.Kind)
	require.NotNil(t, in.Message)
	assert.Equal(t, event.Message{ID: "m-7", Content: ".ping", AuthorID: 3, CommunityID: 1, ChannelID: 2}, *in.Message)

	in, err = Decode([]byte(`{"kind":"member_join","member":{"community_id":1,"user_id":9}}`))
	require.NoError(t, err)
	assert.Equal(t, event.KindMemberJoin, in.Kind)
	assert.Equal(t, &event.MemberChange{CommunityID: 1, UserID: 9}, in.Member)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		code string
	}{
		{"not json", `kind=message`, CodeMalformedEvent},
		{"unknown field", `{"kind":"message","extra":1}`, CodeMalformedEvent},
		{"negative id", `{"kind":"message","message":{"author_id":-1}}`, CodeMalformedEvent},
		{"unknown kind", `{"kind":"typing_start"}`, event.CodeUnknownEventKind},
		{"missing kind", `{}`, event.CodeUnknownEventKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.line))
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestSourceSkipsBadLines(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	input := strings.Join([]string{
		`# recorded session`,
		``,
		`{"kind":"member_join","member":{"community_id":1,"user_id":2}}`,
		`{"kind":"bogus"}`,
		`{"kind":"member_remove","member":{"community_id":1,"user_id":2}}`,
	}, "\n")

	out := make(chan bot.Inbound, 10)
	require.NoError(t, NewSource(strings.NewReader(input), quiet, metrics).Run(context.Background(), out))

	var kinds []event.Kind
	for in := range out {
		kinds = append(kinds, in.Kind)
	}
	assert.Equal(t, []event.Kind{event.KindMemberJoin, event.KindMemberRemove}, kinds)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EventsDropped.WithLabelValues("decode")), 0)
}

func TestSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan bot.Inbound)
	input := `{"kind":"member_join","member":{"community_id":1,"user_id":2}}`
	require.NoError(t, NewSource(strings.NewReader(input), quiet, nil).Run(ctx, out))

	_, open := <-out
	assert.False(t, open)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)
	ctx := context.Background()

	require.NoError(t, sink.Typing(ctx, 2))
	require.NoError(t, sink.SendNotice(ctx, 2, "Pong!"))
	require.NoError(t, sink.SendReply(ctx, event.Message{ID: "m-1", ChannelID: 2}, "hi"))

	assert.Equal(t, strings.Join([]string{
		`{"kind":"typing","channel_id":2}`,
		`{"kind":"notice","channel_id":2,"text":"Pong!"}`,
		`{"kind":"reply","channel_id":2,"message_id":"m-1","text":"hi"}`,
	}, "\n")+"\n", buf.String())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriterSinkFailure(t *testing.T) {
	err := NewWriterSink(brokenWriter{}).SendNotice(context.Background(), 2, "x")
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "output", OutputNotice)
}

func TestStaticConnections(t *testing.T) {
	conns := NewStaticConnections(1, 3)
	assert.True(t, conns.HasActiveConnection(context.Background(), 1))
	assert.False(t, conns.HasActiveConnection(context.Background(), 2))
}

func TestReplaySession(t *testing.T) {
	dir, err := directory.New(directory.NewMemoryMemberStore())
	require.NoError(t, err)
	require.NoError(t, dir.Seed(map[trust.Level][]directory.ID{trust.Owner: {5}}))

	var buf bytes.Buffer
	b, err := bot.New(&event.Env{Directory: dir, Replies: NewWriterSink(&buf), Logger: quiet}, ".", bot.WithWorkers(1))
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"kind":"message","message":{"id":"a","content":".permission","author_id":5,"community_id":1,"channel_id":2}}`,
		`{"kind":"message","message":{"id":"b","content":".setlevel 6 admin","author_id":5,"community_id":1,"channel_id":2}}`,
	}, "\n")
	events := make(chan bot.Inbound)
	errCh := make(chan error, 1)
	go func() { errCh <- NewSource(strings.NewReader(input), quiet, nil).Run(context.Background(), events) }()
	require.NoError(t, b.Run(context.Background(), events))
	require.NoError(t, <-errCh)

	var texts []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var o Output
		require.NoError(t, json.Unmarshal([]byte(line), &o))
		if o.Kind == OutputReply {
			texts = append(texts, o.Text)
		}
	}
	assert.Equal(t, []string{
		"Your authorization level is ``owner``",
		"Successfully changed the server permission of 6 to ``admin``",
	}, texts)

	member, err := dir.Member(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.Equal(t, trust.Admin, member.LocalLevel())
}
