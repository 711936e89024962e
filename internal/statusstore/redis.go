package statusstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"comprafacil/internal/order"

	"github.com/redis/go-redis/v9"
)

// swapScript sets ARGV[1] only while the key holds ARGV[2]; a missing key
// reads as ARGV[3] (the default status).
const swapScript = `
local cur = redis.call('GET', KEYS[1])
if not cur then cur = ARGV[3] end
if cur ~= ARGV[2] or cur == ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// RedisStore keeps entries as plain keys without expiry.
type RedisStore struct {
	rdb redisClient
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func NewRedisStore(rdb redisClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (r *RedisStore) Get(ctx context.Context, orderID string) (order.Status, error) {
	if err := validate(orderID); err != nil {
		return "", err
	}

	v, err := r.rdb.Get(ctx, Key(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return order.StatusPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}
	return order.Status(v), nil
}

func (r *RedisStore) Put(ctx context.Context, orderID string, status order.Status) error {
	if err := validate(orderID); err != nil {
		return err
	}
	if status == "" {
		return ErrEmptyStatus
	}

	if err := r.rdb.Set(ctx, Key(orderID), string(status), 0).Err(); err != nil {
		return fmt.Errorf("put status: %w", err)
	}
	return nil
}

func (r *RedisStore) Swap(ctx context.Context, orderID string, expected, status order.Status) (bool, error) {
	if err := validate(orderID); err != nil {
		return false, err
	}
	if status == "" || expected == "" {
		return false, ErrEmptyStatus
	}

	n, err := r.rdb.Eval(ctx, swapScript,
		[]string{Key(orderID)},
		string(status), string(expected), string(order.StatusPending),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("swap status: %w", err)
	}
	return n == 1, nil
}
