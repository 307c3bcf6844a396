package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishMember(context.Background(), 1, "payload"))
	assert.NoError(t, n.PublishAdmin(context.Background(), "payload"))
}

func TestMemberChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		memberID uint
		expected string
	}{
		{1, "notifications:member:1"},
		{100, "notifications:member:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, MemberChannel(tt.memberID))
	}
}

func TestParseMemberChannel(t *testing.T) {
	t.Parallel()

	id, ok := ParseMemberChannel("notifications:member:42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = ParseMemberChannel("notifications:admin")
	assert.False(t, ok)

	_, ok = ParseMemberChannel("notifications:member:abc")
	assert.False(t, ok)
}

func TestNotifier_PatternSubscriberReceivesBothChannels(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, _ string) {
		received <- channel
	}))

	require.NoError(t, n.PublishMember(context.Background(), 7, "member payload"))
	require.NoError(t, n.PublishAdmin(context.Background(), "admin payload"))

	channels := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ch := <-received:
			channels[ch] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for published messages")
		}
	}
	assert.True(t, channels["notifications:member:7"])
	assert.True(t, channels["notifications:admin"])
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received int32
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_, _ string) {
		atomic.AddInt32(&received, 1)
	}))

	require.NoError(t, n.PublishMember(context.Background(), 1, "before-cancel"))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.PublishMember(context.Background(), 1, "after-cancel"))
	assert.Never(t, func() bool {
		return atomic.LoadInt32(&received) > 1
	}, 200*time.Millisecond, 10*time.Millisecond)
}
