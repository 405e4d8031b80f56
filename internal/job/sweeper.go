// Package job 后台定时任务
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"classroom-attendance/config"
)

// sweepTimeout 单次清理的最长执行时间
const sweepTimeout = 2 * time.Minute

// OrphanCleaner 删除引用已不存在学生的考勤记录
type OrphanCleaner interface {
	SweepOrphans(ctx context.Context) (int64, error)
}

// OrphanSweeper 按 cron 表达式周期执行孤儿考勤清理
// 上一轮未结束时跳过本轮
type OrphanSweeper struct {
	cron    *cron.Cron
	cleaner OrphanCleaner
	logger  *zap.Logger
}

// NewOrphanSweeper 创建清理任务；schedule 非法时返回错误
func NewOrphanSweeper(cfg config.SweepConfig, cleaner OrphanCleaner, logger *zap.Logger) (*OrphanSweeper, error) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	s := &OrphanSweeper{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		cleaner: cleaner,
		logger:  logger,
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("注册孤儿考勤清理任务失败 (%q): %w", cfg.Schedule, err)
	}
	return s, nil
}

// Start 启动调度（非阻塞）
func (s *OrphanSweeper) Start() {
	s.cron.Start()
	s.logger.Info("孤儿考勤清理任务已启动")
}

// Stop 停止调度并等待正在执行的任务结束或 ctx 超时
func (s *OrphanSweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("等待清理任务结束超时")
	}
}

// RunOnce 立即执行一次清理，返回删除条数
func (s *OrphanSweeper) RunOnce(ctx context.Context) int64 {
	removed, err := s.cleaner.SweepOrphans(ctx)
	if err != nil {
		s.logger.Error("孤儿考勤清理失败", zap.Error(err))
		return 0
	}
	s.logger.Debug("孤儿考勤清理完成", zap.Int64("removed", removed))
	return removed
}
