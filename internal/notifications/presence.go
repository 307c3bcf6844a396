package notifications

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceOnlineSetKey  = "ws:online_members"
	presenceLastSeenKeyNS = "ws:last_seen:"
	presenceLastSeenTTL   = 90 * time.Second
	presenceOfflineGrace  = 5 * time.Second
	presenceReaperPeriod  = 60 * time.Second
)

// PresenceTracker mirrors active member connections into Redis so the
// dashboard can count online members across processes. Offline transitions
// are debounced with a grace window to absorb rapid reconnects.
type PresenceTracker struct {
	rdb *redis.Client

	mu              sync.RWMutex
	localConnCounts map[uint]int
	offlineTimers   map[uint]*time.Timer

	offlineGrace time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewPresenceTracker creates a tracker and starts a Redis reaper when Redis
// is available.
func NewPresenceTracker(rdb *redis.Client) *PresenceTracker {
	t := &PresenceTracker{
		rdb:             rdb,
		localConnCounts: make(map[uint]int),
		offlineTimers:   make(map[uint]*time.Timer),
		offlineGrace:    presenceOfflineGrace,
		stopCh:          make(chan struct{}),
	}
	if t.rdb != nil {
		go t.reaperLoop()
	}
	return t
}

// SetOfflineGracePeriod overrides the reconnect grace window.
func (t *PresenceTracker) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	t.offlineGrace = d
	t.mu.Unlock()
}

// Stop cancels the reaper and any pending offline timers.
func (t *PresenceTracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
		t.mu.Lock()
		for memberID, timer := range t.offlineTimers {
			if timer != nil {
				timer.Stop()
			}
			delete(t.offlineTimers, memberID)
		}
		t.mu.Unlock()
	})
}

// Register records a new connection for the member.
func (t *PresenceTracker) Register(ctx context.Context, memberID uint) {
	t.mu.Lock()
	if timer, ok := t.offlineTimers[memberID]; ok {
		timer.Stop()
		delete(t.offlineTimers, memberID)
	}
	t.localConnCounts[memberID]++
	t.mu.Unlock()

	t.Touch(ctx, memberID)
}

// Touch refreshes the member's presence markers in Redis.
func (t *PresenceTracker) Touch(ctx context.Context, memberID uint) {
	if t.rdb == nil {
		return
	}
	mid := strconv.FormatUint(uint64(memberID), 10)
	if err := t.rdb.SAdd(ctx, presenceOnlineSetKey, mid).Err(); err != nil {
		log.Printf("presence touch SADD failed for member %d: %v", memberID, err)
	}
	if err := t.rdb.SetEx(ctx, t.lastSeenKey(memberID), strconv.FormatInt(time.Now().Unix(), 10), presenceLastSeenTTL).Err(); err != nil {
		log.Printf("presence touch SETEX failed for member %d: %v", memberID, err)
	}
}

// Unregister records a closed connection. The Redis markers are removed
// only after the grace window passes without a reconnect.
func (t *PresenceTracker) Unregister(ctx context.Context, memberID uint) {
	t.mu.Lock()
	if n, ok := t.localConnCounts[memberID]; ok {
		n--
		if n > 0 {
			t.localConnCounts[memberID] = n
			t.mu.Unlock()
			return
		}
		delete(t.localConnCounts, memberID)
	}

	if timer, ok := t.offlineTimers[memberID]; ok {
		timer.Stop()
	}
	t.offlineTimers[memberID] = time.AfterFunc(t.offlineGrace, func() {
		t.finalizeOffline(context.Background(), memberID)
	})
	t.mu.Unlock()
}

// IsOnline reports whether a member has a live connection on any process.
func (t *PresenceTracker) IsOnline(ctx context.Context, memberID uint) bool {
	t.mu.RLock()
	if t.localConnCounts[memberID] > 0 {
		t.mu.RUnlock()
		return true
	}
	t.mu.RUnlock()

	if t.rdb == nil {
		return false
	}
	exists, err := t.rdb.Exists(ctx, t.lastSeenKey(memberID)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

// OnlineCount returns the number of online members cluster-wide, falling
// back to the local count without Redis.
func (t *PresenceTracker) OnlineCount(ctx context.Context) int64 {
	if t.rdb != nil {
		if n, err := t.rdb.SCard(ctx, presenceOnlineSetKey).Result(); err == nil {
			return n
		}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int64(len(t.localConnCounts))
}

// reapOnce is test-visible and performs one stale-entry cleanup pass.
func (t *PresenceTracker) reapOnce(ctx context.Context) {
	if t.rdb == nil {
		return
	}

	members, err := t.rdb.SMembers(ctx, presenceOnlineSetKey).Result()
	if err != nil {
		return
	}

	for _, raw := range members {
		id64, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			continue
		}
		memberID := uint(id64)
		exists, existsErr := t.rdb.Exists(ctx, t.lastSeenKey(memberID)).Result()
		if existsErr != nil || exists > 0 {
			continue
		}

		t.mu.RLock()
		hasLocal := t.localConnCounts[memberID] > 0
		t.mu.RUnlock()
		if hasLocal {
			// Heartbeat missed but the connection is still here; refresh.
			t.Touch(ctx, memberID)
			continue
		}
		_ = t.rdb.SRem(ctx, presenceOnlineSetKey, raw).Err()
	}
}

func (t *PresenceTracker) reaperLoop() {
	ticker := time.NewTicker(presenceReaperPeriod)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.reapOnce(ctx)
		}
	}
}

func (t *PresenceTracker) finalizeOffline(ctx context.Context, memberID uint) {
	t.mu.Lock()
	if t.localConnCounts[memberID] > 0 {
		delete(t.offlineTimers, memberID)
		t.mu.Unlock()
		return
	}
	delete(t.offlineTimers, memberID)
	t.mu.Unlock()

	if t.rdb != nil {
		exists, err := t.rdb.Exists(ctx, t.lastSeenKey(memberID)).Result()
		if err == nil && exists > 0 {
			// Another process refreshed presence. Keep the member online.
			return
		}
		_ = t.rdb.SRem(ctx, presenceOnlineSetKey, strconv.FormatUint(uint64(memberID), 10)).Err()
	}
}

func (t *PresenceTracker) lastSeenKey(memberID uint) string {
	return presenceLastSeenKeyNS + strconv.FormatUint(uint64(memberID), 10)
}
