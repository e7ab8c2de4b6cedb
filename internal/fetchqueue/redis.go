package fetchqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKey is the list used when the DSN has no key parameter.
const DefaultRedisKey = "mailsync:contact_fetch"

// popTimeout bounds each BRPOP so a cancelled context is noticed.
const popTimeout = time.Second

// Redis keeps requests as JSON in a Redis list: LPUSH to enqueue, BRPOP to dequeue.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis builds a queue from a redis:// or rediss:// URL. The optional
// "key" query parameter names the list.
func NewRedis(u *url.URL) (*Redis, error) {
	key := u.Query().Get("key")
	if key == "" {
		key = DefaultRedisKey
	}
	bare := *u
	bare.RawQuery = ""
	opts, err := redis.ParseURL(bare.String())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts), key: key}, nil
}

// Key returns the list name.
func (q *Redis) Key() string {
	return q.key
}

func (q *Redis) Enqueue(ctx context.Context, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode fetch request: %w", err)
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

func (q *Redis) Dequeue(ctx context.Context) (Request, error) {
	for {
		res, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return Request{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			return Request{}, err
		}
		// res is [key, value].
		var req Request
		if err := json.Unmarshal([]byte(res[1]), &req); err != nil {
			return Request{}, fmt.Errorf("decode fetch request: %w", err)
		}
		return req, nil
	}
}

func (q *Redis) Depth(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	return int(n), err
}

func (q *Redis) Close() error {
	return q.client.Close()
}
