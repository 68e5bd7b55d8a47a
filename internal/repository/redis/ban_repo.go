package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Campus_Community/internal/model"

	"github.com/redis/go-redis/v9"
)

const BanKeyPrefix = "user:ban"

// BanCacheRepository 封禁状态短 TTL 缓存，鉴权中间件每个请求都会读
type BanCacheRepository struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewBanCacheRepository(rdb *redis.Client, ttl time.Duration) *BanCacheRepository {
	return &BanCacheRepository{RDB: rdb, TTL: ttl}
}

func banKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", BanKeyPrefix, userID)
}

func (r *BanCacheRepository) Get(ctx context.Context, userID uint64) (model.BanStatus, bool, error) {
	var st model.BanStatus
	raw, err := r.RDB.Get(ctx, banKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return st, false, nil
	}
	if err != nil {
		return st, false, err
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		// 脏数据当作未命中
		return st, false, nil
	}
	return st, true, nil
}

func (r *BanCacheRepository) Set(ctx context.Context, userID uint64, status model.BanStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return r.RDB.Set(ctx, banKey(userID), raw, r.TTL).Err()
}

func (r *BanCacheRepository) Delete(ctx context.Context, userID uint64) error {
	return r.RDB.Del(ctx, banKey(userID)).Err()
}
