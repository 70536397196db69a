package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/warp/places-engine/booking"
)

// DefaultRedisKey is where the points board is stored.
const DefaultRedisKey = "places:points"

// Redis caches the points board in Redis so several server instances
// share it.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

// Dial connects to addr and pings it. A nil cache and the ping error are
// returned when Redis is unreachable.
func Dial(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedis(client, DefaultRedisKey, ttl), nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context) ([]booking.ClubPoints, bool) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[Cache] redis get %s: %v", r.key, err)
		return nil, false
	}

	var points []booking.ClubPoints
	if err := json.Unmarshal(data, &points); err != nil {
		log.Printf("[Cache] redis value %s unreadable: %v", r.key, err)
		return nil, false
	}
	return points, true
}

func (r *Redis) Set(ctx context.Context, points []booking.ClubPoints) {
	data, err := json.Marshal(points)
	if err != nil {
		log.Printf("[Cache] encoding points board: %v", err)
		return
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		log.Printf("[Cache] redis set %s: %v", r.key, err)
	}
}

func (r *Redis) Invalidate(ctx context.Context) {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		log.Printf("[Cache] redis del %s: %v", r.key, err)
	}
}
