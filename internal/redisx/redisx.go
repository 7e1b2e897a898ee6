package redisx

import (
    "context"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("redis: key not found")

type Options struct {
    Addr     string
    Password string
    DB       int
    Timeout  time.Duration // dial, read and write; 2s when zero
}

// Client is the small slice of Redis the sync uses: report keys and pub/sub.
type Client struct { Rdb *redis.Client }

func New(o Options) *Client {
    timeout := o.Timeout
    if timeout <= 0 { timeout = 2 * time.Second }
    rdb := redis.NewClient(&redis.Options{
        Addr:         o.Addr,
        Password:     o.Password,
        DB:           o.DB,
        DialTimeout:  timeout,
        ReadTimeout:  timeout,
        WriteTimeout: timeout,
        MaxRetries:   1,
    })
    return &Client{Rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
    return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
    v, err := c.Rdb.Get(ctx, key).Result()
    if errors.Is(err, redis.Nil) { return "", ErrMiss }
    return v, err
}

func (c *Client) Set(ctx context.Context, key string, val string, ttl time.Duration) error {
    return c.Rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Client) Publish(ctx context.Context, channel string, payload string) error {
    return c.Rdb.Publish(ctx, channel, payload).Err()
}

func (c *Client) Close() error { return c.Rdb.Close() }
