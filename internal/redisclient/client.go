package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/refresh_lock.lua
var refreshLockScript string

//go:embed scripts/release_lock.lua
var releaseLockScript string

// ErrLockHeld is returned when another owner holds the lock
var ErrLockHeld = errors.New("lock held by another owner")

const lockPrefix = "cdc-generator:lock:"

type Client struct {
	rdb           redis.Cmdable
	closer        func() error
	refreshScript *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb, rdb.Close), nil
}

func newClient(rdb redis.Cmdable, closer func() error) *Client {
	return &Client{
		rdb:           rdb,
		closer:        closer,
		refreshScript: redis.NewScript(refreshLockScript),
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// LockKey returns the Redis key guarding name
func LockKey(name string) string {
	return lockPrefix + name
}

// Lease is an owner-tagged lock with a TTL
type Lease struct {
	client *Client
	key    string
	owner  string
	ttl    time.Duration
}

// AcquireLock takes the lock for name on behalf of owner. It returns
// ErrLockHeld when someone else already has it.
func (c *Client) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (*Lease, error) {
	key := LockKey(name)

	ok, err := c.rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s failed: %w", key, err)
	}
	if !ok {
		holder, _ := c.rdb.Get(ctx, key).Result()
		return nil, fmt.Errorf("%w: %s (owner %s)", ErrLockHeld, key, holder)
	}

	return &Lease{client: c, key: key, owner: owner, ttl: ttl}, nil
}

// Key returns the Redis key of the lease
func (l *Lease) Key() string {
	return l.key
}

// Refresh extends the lease. It fails with ErrLockHeld once the lease has
// expired or been taken over.
func (l *Lease) Refresh(ctx context.Context) error {
	result, err := l.client.refreshScript.Run(ctx, l.client.rdb, []string{l.key}, l.owner, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("refresh lock script failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("%w: %s", ErrLockHeld, l.key)
	}
	return nil
}

// Release drops the lease if it is still ours
func (l *Lease) Release(ctx context.Context) error {
	_, err := l.client.releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.owner).Result()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}
