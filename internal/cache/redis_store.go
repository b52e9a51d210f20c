package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/forattini-dev/recker/internal/recker"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for sharing cached responses
// across client instances: a distributed, TTL-bearing counterpart to the
// in-memory structure.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore builds a RedisStore. ttl bounds how long Redis itself
// retains an entry; the cache Engine's own TTL/SWR policy still governs
// freshness on top of this.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "recker:cache:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

type redisEntry struct {
	Status     int               `json:"status"`
	StatusText string            `json:"status_text"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
	InsertedAt int64             `json:"inserted_at"`
}

func (s *RedisStore) key(fingerprint string) string {
	return s.keyPrefix + fingerprint
}

// Get implements Store.
func (s *RedisStore) Get(fingerprint string) (Entry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := s.client.Get(ctx, s.key(fingerprint)).Bytes()
	if err != nil {
		return Entry{}, false
	}
	var re redisEntry
	if err := json.Unmarshal(raw, &re); err != nil {
		return Entry{}, false
	}
	return re.toEntry(), true
}

// Put implements Store.
func (s *RedisStore) Put(fingerprint string, entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	re := fromEntryToRedis(entry)
	data, err := json.Marshal(re)
	if err != nil {
		return
	}
	ttl := s.ttl
	if ttl <= 0 {
		ttl = 0
	}
	_ = s.client.Set(ctx, s.key(fingerprint), data, ttl).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(fingerprint string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.client.Del(ctx, s.key(fingerprint)).Err()
}

func fromEntryToRedis(e Entry) redisEntry {
	headers := make(map[string]string)
	e.Headers.Range(func(name, value string) {
		headers[name] = value
	})
	return redisEntry{
		Status:     e.Status,
		StatusText: e.StatusText,
		Headers:    headers,
		Body:       e.Body,
		InsertedAt: e.InsertedAt.UnixMilli(),
	}
}

func (re redisEntry) toEntry() Entry {
	headers := make([]string, 0, len(re.Headers)*2)
	for k, v := range re.Headers {
		headers = append(headers, k, v)
	}
	return Entry{
		Status:     re.Status,
		StatusText: re.StatusText,
		Headers:    recker.NewHeaders(headers...),
		Body:       re.Body,
		InsertedAt: time.UnixMilli(re.InsertedAt),
	}
}
