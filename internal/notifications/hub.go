package notifications

import (
	"context"
	"errors"
	"log"
	"sync"

	"steeple/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// Max connections per member
	maxConnsPerMember = 12
	// Max total connections
	maxTotalConns = 10000
)

// Hub routes notification payloads to websocket clients. Member clients
// receive only their own channel; admin clients additionally receive the
// shared admin channel.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	adminConns map[*Client]struct{}
	totalConns int
	shutdown   chan struct{}
	done       chan struct{}
	presence   *PresenceTracker
}

// NewHub creates a new Hub instance for routing notifications.
func NewHub(redisClients ...*redis.Client) *Hub {
	var redisClient *redis.Client
	if len(redisClients) > 0 {
		redisClient = redisClients[0]
	}

	return &Hub{
		conns:      make(map[uint]map[*Client]struct{}),
		adminConns: make(map[*Client]struct{}),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		presence:   NewPresenceTracker(redisClient),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "notification hub" }

// Register a connection for a given member. An admin client also joins the
// admin fan-out set. Returns the Client or an error if limits are exceeded.
func (h *Hub) Register(memberID uint, conn *websocket.Conn, admin bool) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[memberID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[memberID] = m
	}

	if len(m) >= maxConnsPerMember {
		h.mu.Unlock()
		return nil, errors.New("member connection limit reached")
	}

	client := NewClient(h, conn, memberID)
	client.Admin = admin
	client.OnActivity = func(mid uint) {
		h.presence.Touch(context.Background(), mid)
	}

	m[client] = struct{}{}
	if admin {
		h.adminConns[client] = struct{}{}
	}
	h.totalConns++
	h.mu.Unlock()

	observability.ActiveWebSockets.Inc()
	h.presence.Register(context.Background(), memberID)

	return client, nil
}

// UnregisterClient removes the client from member and admin routing.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.MemberID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.conns, client.MemberID)
		}
	}
	delete(h.adminConns, client)
	h.mu.Unlock()

	if removed {
		observability.ActiveWebSockets.Dec()
		h.presence.Unregister(context.Background(), client.MemberID)
	}
}

// Broadcast sends message to all connections for the member.
func (h *Hub) Broadcast(memberID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.conns[memberID]; ok {
		data := []byte(message)
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// BroadcastAdmin sends message to every connected admin client.
func (h *Hub) BroadcastAdmin(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.adminConns {
		c.TrySend(data)
	}
}

// IsOnline reports whether a member currently has at least one active
// websocket connection on any process.
func (h *Hub) IsOnline(memberID uint) bool {
	return h.presence.IsOnline(context.Background(), memberID)
}

// OnlineMembers returns the cluster-wide online member count.
func (h *Hub) OnlineMembers(ctx context.Context) int64 {
	return h.presence.OnlineCount(ctx)
}

// StartWiring connects the Notifier to this hub: it subscribes to the Redis
// patterns and forwards messages to the matching clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == adminChannel {
			h.BroadcastAdmin(payload)
			return
		}
		memberID, ok := ParseMemberChannel(channel)
		if !ok {
			log.Printf("invalid notification channel: %s", channel)
			return
		}
		h.Broadcast(memberID, payload)
	})
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)
	h.presence.Stop()

	h.mu.Lock()
	for memberID, memberConns := range h.conns {
		for client := range memberConns {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				log.Printf("failed to write close message for member %d: %v", memberID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for member %d: %v", memberID, err)
			}
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.adminConns = make(map[*Client]struct{})
	h.mu.Unlock()

	close(h.done)
	return nil
}
