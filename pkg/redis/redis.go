package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"classroom-attendance/config"
)

// Client Redis 客户端封装
// 用于课节考勤读缓存与写接口限流；调用方持有 nil 时视为降级运行
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── JSON 缓存 ──

// GetJSON 读取缓存并反序列化到 dst，未命中返回 false
func (c *Client) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// 缓存内容损坏时删除，按未命中处理
		c.rdb.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// SetJSON 序列化 v 写入缓存
func (c *Client) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// Delete 删除指定键
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// ── 版本化回填 ──

// Versions 批量读取版本号（MGET），不存在的键视为 0
func (c *Client) Versions(ctx context.Context, keys ...string) ([]int64, error) {
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	return parseVersions(vals)
}

// SetJSONIfUnchanged WATCH 版本键，版本与 versions 一致时写入缓存
// 版本已变或事务被并发修改打断时返回 false
func (c *Client) SetJSONIfUnchanged(
	ctx context.Context,
	key string,
	v interface{},
	ttl time.Duration,
	versionKeys []string,
	versions []int64,
) (bool, error) {
	if len(versionKeys) != len(versions) {
		return false, fmt.Errorf("版本键数量 %d 与版本数量 %d 不一致", len(versionKeys), len(versions))
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false, err
	}

	stored := false
	err = c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		vals, err := tx.MGet(ctx, versionKeys...).Result()
		if err != nil {
			return err
		}
		current, err := parseVersions(vals)
		if err != nil {
			return err
		}
		for i := range current {
			if current[i] != versions[i] {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, raw, ttl)
			return nil
		})
		stored = err == nil
		return err
	}, versionKeys...)
	if errors.Is(err, goredis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate 在同一事务中递增版本号并删除 keys
func (c *Client) Invalidate(ctx context.Context, versionKey string, keys ...string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, versionKey)
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func parseVersions(vals []interface{}) ([]int64, error) {
	out := make([]int64, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("版本号格式错误 %q: %w", s, err)
		}
		out[i] = n
	}
	return out, nil
}

// DeleteByPattern 按通配模式批量删除（SCAN 遍历，避免 KEYS 阻塞）
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := c.rdb.Scan(ctx, 0, pattern, 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 200 {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.Delete(ctx, batch...)
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流：窗口内请求数未超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := rateLimitMember(now)
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", windowStart)
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() <= int64(limit), nil
}

// rateLimitMember 纳秒时间戳追加 uuid，同一纳秒内的多个请求各自计数
func rateLimitMember(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
