// Package notifications provides real-time notification delivery over
// Redis pub/sub and websockets.
package notifications

import (
	"context"
	"log"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const adminChannel = "notifications:admin"

const memberChannelPrefix = "notifications:member:"

// Notifier publishes notification payloads into Redis channels. A nil
// Redis client makes every publish a no-op so the server can run without
// realtime delivery.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishMember sends a notification payload to a member's channel.
func (n *Notifier) PublishMember(ctx context.Context, memberID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, MemberChannel(memberID), payload).Err()
}

// PublishAdmin sends a notification payload to the shared admin channel.
func (n *Notifier) PublishAdmin(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, adminChannel, payload).Err()
}

// StartPatternSubscriber subscribes to the member pattern and the admin
// channel and calls onMessage for each incoming message. onMessage receives
// channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, memberChannelPrefix+"*", adminChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// MemberChannel derives the Redis channel name for a member.
func MemberChannel(memberID uint) string {
	return memberChannelPrefix + strconv.FormatUint(uint64(memberID), 10)
}

// AdminChannel returns the shared admin channel name.
func AdminChannel() string {
	return adminChannel
}

// ParseMemberChannel extracts the member ID from a member channel name.
// The second return is false when the channel is not a member channel.
func ParseMemberChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, memberChannelPrefix)
	if !ok {
		return 0, false
	}
	id64, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id64), true
}
