package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"gnss-bridge/internal/fix"
)

const redisOpTimeout = 2 * time.Second

type RedisConfig struct {
	Addr      string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// setter is the part of redis.Client the sink uses.
type setter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis keeps the last fix and status under <prefix>:fix and <prefix>:status.
// Keys expire after TTL so a dead receiver does not leave a stale position.
type Redis struct {
	rdb    setter
	prefix string
	ttl    time.Duration
	close  func() error
}

func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed addr=%s: %w", cfg.Addr, err)
	}
	log.Printf("redis connected addr=%s db=%d", cfg.Addr, cfg.DB)

	r := newRedis(rdb, cfg.KeyPrefix, cfg.TTL)
	r.close = rdb.Close
	return r, nil
}

func newRedis(s setter, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: s, prefix: prefix, ttl: ttl}
}

func (r *Redis) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func (r *Redis) set(key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("redis marshal failed key=%s: %v", key, err)
		return
	}
	key = r.prefix + ":" + key
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := r.rdb.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		log.Printf("redis SET %s: %v", key, err)
	}
}

func (r *Redis) OnFix(s fix.Snapshot) { r.set("fix", s) }

func (r *Redis) OnStatusChange(s fix.Status, e fix.Extras, ms int64) {
	r.set("status", NewStatusMessage(s, e, ms))
}

func (r *Redis) OnSatelliteList([]fix.SatelliteRecord) {}
