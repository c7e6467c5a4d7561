package redisStore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) IsTxFailed(err error) bool {
	return errors.Is(err, redis.TxFailedErr)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

//hashes, one field per sort key

func (s *Store) HashGet(ctx context.Context, key, field string) (string, error) {
	return s.client.HGet(ctx, key, field).Result()
}

// HashGetMany reads the same field from many hashes in one round trip.
// Missing hashes come back as empty strings.
func (s *Store) HashGetMany(ctx context.Context, keys []string, field string) ([]string, error) {
	cmds := make([]*redis.StringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.HGet(ctx, k, field)
		}
		return nil
	})
	if err != nil && !s.IsNil(err) {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil && !s.IsNil(err) {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

//sets

func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *Store) SetRemove(ctx context.Context, key string, members ...interface{}) error {
	return s.client.SRem(ctx, key, members...).Err()
}

//transactions

// TxPipelined runs fn inside MULTI/EXEC.
func (s *Store) TxPipelined(ctx context.Context, fn func(pipe redis.Pipeliner) error) error {
	_, err := s.client.TxPipelined(ctx, fn)
	return err
}

// Watch runs fn optimistically on keys. It returns redis.TxFailedErr when a
// watched key changed before EXEC.
func (s *Store) Watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	return s.client.Watch(ctx, fn, keys...)
}

//lists and sorted sets, used by the work queue

func (s *Store) ListPush(ctx context.Context, key string, value interface{}) error {
	return s.client.LPush(ctx, key, value).Err()
}

// ListBlockingMove pops the tail of src onto the head of dst, waiting up to
// timeout for an element.
func (s *Store) ListBlockingMove(ctx context.Context, src, dst string, timeout time.Duration) (string, error) {
	return s.client.BLMove(ctx, src, dst, "RIGHT", "LEFT", timeout).Result()
}

func (s *Store) ListLen(ctx context.Context, key string) (int64, error) {
	return s.client.LLen(ctx, key).Result()
}

func (s *Store) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, stop).Result()
}

func (s *Store) SortedSetRangeByScore(ctx context.Context, key string, maxScore int64) ([]string, error) {
	return s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: formatScore(maxScore),
	}).Result()
}

func (s *Store) SortedSetRemove(ctx context.Context, key string, members ...interface{}) (int64, error) {
	return s.client.ZRem(ctx, key, members...).Result()
}

func formatScore(score int64) string {
	return strconv.FormatInt(score, 10)
}

func (s *Store) SortedSetAdd(ctx context.Context, key string, score int64, member string) error {
	return s.client.ZAdd(ctx, key, redis.Z{Score: float64(score), Member: member}).Err()
}

// SortedSetAddNX only scores members that are not in the set yet.
func (s *Store) SortedSetAddNX(ctx context.Context, key string, score int64, members ...string) error {
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		zs[i] = redis.Z{Score: float64(score), Member: m}
	}
	return s.client.ZAddNX(ctx, key, zs...).Err()
}

func (s *Store) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (int64, error) {
	return script.Run(ctx, s.client, keys, args...).Int64()
}
