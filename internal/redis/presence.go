// Package redis keeps a cluster-wide view of which users are online.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys used:
//   - <prefix>:presence:<userID> -> live session id, expires after the TTL
//   - <prefix>:online            -> sorted set of user ids scored by expiry (unix ms)
//
// Entries that are not refreshed lapse on their own, so a crashed instance
// cannot leave its users online.

// DefaultTTL is how long a presence entry lives without a refresh.
const DefaultTTL = time.Minute

// clearIfCurrent deletes the presence key only when it still names the
// disconnecting session, then drops the user from the online set.
var clearIfCurrent = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", KEYS[1])
	redis.call("ZREM", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// refreshIfCurrent extends the entry of the given session. A session that
// has been superseded or has already lapsed is left alone.
var refreshIfCurrent = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("PEXPIRE", KEYS[1], ARGV[3])
	redis.call("ZADD", KEYS[2], ARGV[4], ARGV[2])
	return 1
end
return 0
`)

// PresenceStore mirrors session bindings into Redis.
type PresenceStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewPresenceStore creates a presence store whose entries expire after ttl
// unless refreshed.
func NewPresenceStore(client *redis.Client, prefix string, ttl time.Duration) *PresenceStore {
	if prefix == "" {
		prefix = "chat"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PresenceStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of an unrefreshed entry.
func (s *PresenceStore) TTL() time.Duration {
	return s.ttl
}

func (s *PresenceStore) presenceKey(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

func (s *PresenceStore) onlineKey() string {
	return s.prefix + ":online"
}

func (s *PresenceStore) expiryScore() float64 {
	return float64(s.now().Add(s.ttl).UnixMilli())
}

// SetOnline records sessionID as the live session of userID.
func (s *PresenceStore) SetOnline(ctx context.Context, userID, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.presenceKey(userID), sessionID, s.ttl)
		pipe.ZAdd(ctx, s.onlineKey(), redis.Z{Score: s.expiryScore(), Member: userID})
		return nil
	})
	return err
}

// Refresh extends the presence of userID while sessionID is still its live
// session. It reports whether the entry was extended.
func (s *PresenceStore) Refresh(ctx context.Context, userID, sessionID string) (bool, error) {
	n, err := refreshIfCurrent.Run(ctx, s.client,
		[]string{s.presenceKey(userID), s.onlineKey()},
		sessionID, userID, s.ttl.Milliseconds(), strconv.FormatFloat(s.expiryScore(), 'f', 0, 64),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetOffline clears the presence of userID if sessionID is still its live
// session.
func (s *PresenceStore) SetOffline(ctx context.Context, userID, sessionID string) error {
	return clearIfCurrent.Run(ctx, s.client,
		[]string{s.presenceKey(userID), s.onlineKey()},
		sessionID, userID,
	).Err()
}

// OnlineUserIDs returns every online user across instances. Lapsed entries
// are pruned first.
func (s *PresenceStore) OnlineUserIDs(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(s.now().UnixMilli(), 10)
	var live *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, s.onlineKey(), "-inf", now)
		live = pipe.ZRangeByScore(ctx, s.onlineKey(), &redis.ZRangeBy{Min: "(" + now, Max: "+inf"})
		return nil
	})
	if err != nil {
		return nil, err
	}
	ids := live.Val()
	sort.Strings(ids)
	return ids, nil
}

// Ping checks the connection.
func (s *PresenceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
