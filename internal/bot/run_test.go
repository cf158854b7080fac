// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package bot_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/holobot/internal/bot"
	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func joins(n int) []bot.Inbound {
	out := make([]bot.Inbound, n)
	for i := range out {
		out[i] = bot.Inbound{
			Kind:   event.KindMemberJoin,
			Member: &event.MemberChange{CommunityID: testCommunity, UserID: directory.ID(i + 1)},
		}
	}
	return out
}

func TestRunDrainsUntilClosed(t *testing.T) {
	f := newFixture(t, nil, bot.WithWorkers(4))
	var handled atomic.Int64
	_, err := f.bot.Events().OnMemberJoin(func(context.Context, event.MemberChange) error {
		handled.Add(1)
		return nil
	})
	require.NoError(t, err)

	in := make(chan bot.Inbound)
	done := make(chan error, 1)
	go func() { done <- f.bot.Run(context.Background(), in) }()

	for _, ev := range joins(50) {
		in <- ev
	}
	close(in)

	require.NoError(t, <-done)
	assert.Equal(t, int64(50), handled.Load())
	assert.False(t, f.bot.Ready())
}

func TestRunBoundsConcurrency(t *testing.T) {
	const workers = 2
	f := newFixture(t, nil, bot.WithWorkers(workers))

	var (
		current, peak atomic.Int64
		release       = make(chan struct{})
	)
	_, err := f.bot.Events().OnMemberJoin(func(context.Context, event.MemberChange) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		current.Add(-1)
		return nil
	})
	require.NoError(t, err)

	in := make(chan bot.Inbound, 6)
	for _, ev := range joins(6) {
		in <- ev
	}
	close(in)

	done := make(chan error, 1)
	go func() { done <- f.bot.Run(context.Background(), in) }()

	assert.Eventually(t, func() bool { return current.Load() == workers }, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int64(workers), peak.Load())
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan bot.Inbound)
	done := make(chan error, 1)
	go func() { done <- f.bot.Run(ctx, in) }()

	assert.Eventually(t, f.bot.Ready, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRejectsSecondCaller(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan bot.Inbound)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = f.bot.Run(ctx, in)
	}()
	assert.Eventually(t, f.bot.Ready, time.Second, 5*time.Millisecond)

	require.Error(t, f.bot.Run(ctx, in))
	cancel()
	wg.Wait()
}

func TestRunKeepsGoingAfterFailures(t *testing.T) {
	f := newFixture(t, nil)
	var handled atomic.Int64
	_, err := f.bot.Events().OnMemberJoin(func(context.Context, event.MemberChange) error {
		handled.Add(1)
		return nil
	})
	require.NoError(t, err)

	in := make(chan bot.Inbound, 3)
	in <- bot.Inbound{Kind: event.KindMemberBan}
	in <- bot.Inbound{Kind: event.KindMessage}
	in <- joins(1)[0]
	close(in)

	require.NoError(t, f.bot.Run(context.Background(), in))
	assert.Equal(t, int64(1), handled.Load())
}
