package service

import (
	"go.uber.org/zap"

	"classroom-attendance/config"
	"classroom-attendance/internal/repository"
	"classroom-attendance/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Student    StudentService
	Attendance AttendanceService
	Roster     RosterService
	Export     ExportService
}

// NewService 创建 Service 聚合
// cache 为 nil 时直接读库；m 为 nil 时不采集业务指标
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache AttendanceCache,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	students := NewStudentService(repo, cache, cfg.Roster.Capacity, logger)
	return &Service{
		Student:    students,
		Attendance: NewAttendanceService(repo, cache, cfg.Attendance, cfg.Redis.CacheTTL, m, logger),
		Roster:     NewRosterService(students, cfg.Roster.Capacity, logger),
		Export:     NewExportService(repo, cfg.Attendance.Periods, logger),
	}
}
