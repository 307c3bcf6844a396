package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestWiring_PublishReachesRegisteredClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	hub := NewHub(rdb)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))

	memberClient, err := hub.Register(9, nil, false)
	require.NoError(t, err)
	adminClient, err := hub.Register(1, nil, true)
	require.NoError(t, err)

	require.NoError(t, n.PublishMember(ctx, 9, `{"type":"badge_granted"}`))
	require.NoError(t, n.PublishAdmin(ctx, `{"type":"member_autobanned"}`))

	select {
	case msg := <-memberClient.Send:
		require.JSONEq(t, `{"type":"badge_granted"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("member client never received the published payload")
	}

	select {
	case msg := <-adminClient.Send:
		require.JSONEq(t, `{"type":"member_autobanned"}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("admin client never received the published payload")
	}

	_ = hub.Shutdown(context.Background())
}
