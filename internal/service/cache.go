package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AttendanceCache 课节考勤读缓存（由 pkg/redis.Client 实现）
// 缓存失败只记录日志，不影响主流程
//
// 回填按版本号做乐观校验：读库前记下版本，写入时版本已变化则放弃回填，
// 避免并发写入之后旧快照被写回缓存
type AttendanceCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	// Versions 读取版本号，不存在的键视为 0
	Versions(ctx context.Context, keys ...string) ([]int64, error)
	// SetJSONIfUnchanged 版本号与 versions 一致时写入，返回是否写入
	SetJSONIfUnchanged(ctx context.Context, key string, v interface{}, ttl time.Duration, versionKeys []string, versions []int64) (bool, error)
	// Invalidate 递增版本号并删除 keys
	Invalidate(ctx context.Context, versionKey string, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const (
	attendanceCachePrefix = "attendance:"
	// 版本键不在 attendance:* 模式内，整体清除缓存时不会被误删
	attendanceVersionPrefix = "attendance-ver:"
	attendanceVersionAll    = attendanceVersionPrefix + "all"
)

func periodCacheKey(date, period string) string {
	return fmt.Sprintf("%s%s:%s", attendanceCachePrefix, date, period)
}

// periodVersionKeys 某课节缓存依赖的版本键：全局版本 + 课节版本
func periodVersionKeys(date, period string) []string {
	return []string{attendanceVersionAll, fmt.Sprintf("%s%s:%s", attendanceVersionPrefix, date, period)}
}

func invalidatePeriod(ctx context.Context, cache AttendanceCache, logger *zap.Logger, date, period string) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, periodVersionKeys(date, period)[1], periodCacheKey(date, period)); err != nil {
		logger.Warn("清除课节考勤缓存失败",
			zap.String("date", date), zap.String("period", period), zap.Error(err))
	}
}

func invalidateAllAttendance(ctx context.Context, cache AttendanceCache, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, attendanceVersionAll); err != nil {
		logger.Warn("递增考勤缓存版本失败", zap.Error(err))
	}
	if err := cache.DeleteByPattern(ctx, attendanceCachePrefix+"*"); err != nil {
		logger.Warn("清除考勤缓存失败", zap.Error(err))
	}
}
