// Package draft provides the local recovery cache for in-progress
// documents. Entries are ephemeral snapshots with a bounded freshness
// window; losing one costs nothing but unsaved-changes recovery, so every
// storage failure here is logged and swallowed.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"tradedesk/api/internal/quote"
)

// TTL is the freshness window: drafts older than this are treated as
// absent.
const TTL = 7 * 24 * time.Hour

// Mode distinguishes creation drafts from edit drafts so the two can never
// collide on a key.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Key derives the stable draft identity. New documents for the same
// project share one key (one recoverable creation draft per project
// context); edits key on the document's own identity.
func Key(mode Mode, projectID, documentID string) string {
	if mode == ModeEdit {
		return string(ModeEdit) + ":" + documentID
	}
	scope := projectID
	if scope == "" {
		scope = "unscoped"
	}
	return string(ModeCreate) + ":" + scope
}

// Entry is the stored snapshot plus its save timestamp.
type Entry struct {
	SavedAt  time.Time   `json:"savedAt"`
	Snapshot *quote.Quote `json:"snapshot"`
}

// RedisCache implements the draft cache on Redis with a per-entry TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: client, prefix: "draft:"}, nil
}

// NewRedisCacheWithClient wraps an existing Redis client.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "draft:"}
}

func (c *RedisCache) key(draftKey string) string {
	return c.prefix + draftKey
}

// Save overwrites the draft at key with a fresh snapshot. It never returns
// an error: a failed draft write must not block editing.
func (c *RedisCache) Save(ctx context.Context, draftKey string, snapshot *quote.Quote) {
	entry := Entry{SavedAt: time.Now(), Snapshot: snapshot}
	payload, err := json.Marshal(entry)
	if err != nil {
		log.Printf("draft: marshal %s: %v", draftKey, err)
		return
	}
	if err := c.client.Set(ctx, c.key(draftKey), payload, TTL).Err(); err != nil {
		log.Printf("draft: save %s: %v", draftKey, err)
	}
}

// Load returns the snapshot at key if one exists within the freshness
// window. Expired or corrupt entries are purged and reported as absent.
func (c *RedisCache) Load(ctx context.Context, draftKey string) (*quote.Quote, bool) {
	payload, err := c.client.Get(ctx, c.key(draftKey)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("draft: load %s: %v", draftKey, err)
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		log.Printf("draft: unmarshal %s: %v", draftKey, err)
		c.Clear(ctx, draftKey)
		return nil, false
	}
	if entry.Snapshot == nil || time.Since(entry.SavedAt) > TTL {
		c.Clear(ctx, draftKey)
		return nil, false
	}
	return entry.Snapshot, true
}

// Clear removes the draft at key. Called on explicit save and on cancel.
func (c *RedisCache) Clear(ctx context.Context, draftKey string) {
	if err := c.client.Del(ctx, c.key(draftKey)).Err(); err != nil {
		log.Printf("draft: clear %s: %v", draftKey, err)
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
