package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"classroom-attendance/config"
	"classroom-attendance/internal/attendance"
	"classroom-attendance/internal/dto"
	"classroom-attendance/internal/model"
	"classroom-attendance/internal/repository"
	pkgerrors "classroom-attendance/pkg/errors"
	"classroom-attendance/pkg/metrics"
)

// ── 考勤模块业务错误 ──

var (
	ErrAttendanceInvalidDate   = errors.New("date must be in YYYY-MM-DD format")
	ErrAttendanceInvalidPeriod = errors.New("period is out of range")
	ErrAttendanceInvalidStatus = errors.New("status must be present, absent or empty")
	ErrAttendanceInvalidRange  = errors.New("invalid time range")
	ErrAttendanceInvalidHours  = errors.New("hours must not be negative")
)

// AttendanceService 考勤业务接口
type AttendanceService interface {
	ListByPeriod(ctx context.Context, date, period string) ([]dto.AttendanceResponse, error)
	// DayHours 返回某日各学生跨课节累计工时
	DayHours(ctx context.Context, date string) (map[string]float64, error)
	Stats(ctx context.Context, date, period string) (*dto.AttendanceStatsResponse, error)
	Mark(ctx context.Context, req *dto.MarkAttendanceRequest) (*dto.AttendanceResponse, error)
	// BulkMark 同一状态应用到一组学生，单事务写入，整体成功或整体失败
	BulkMark(ctx context.Context, req *dto.BulkMarkAttendanceRequest) (*dto.BulkMarkResponse, error)
	// SweepOrphans 清理引用不存在学生的考勤记录（幂等）
	SweepOrphans(ctx context.Context) (int64, error)
}

type attendanceService struct {
	repo    *repository.Repository
	cache   AttendanceCache
	cfg     config.AttendanceConfig
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例；cache、m 可为 nil
func NewAttendanceService(
	repo *repository.Repository,
	cache AttendanceCache,
	cfg config.AttendanceConfig,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) AttendanceService {
	if cfg.FullDayHours <= 0 {
		cfg.FullDayHours = attendance.DefaultFullDayHours
	}
	return &attendanceService{
		repo:    repo,
		cache:   cache,
		cfg:     cfg,
		ttl:     cacheTTL,
		metrics: m,
		logger:  logger,
	}
}

// ────────────────────── ListByPeriod ──────────────────────

func (s *attendanceService) ListByPeriod(ctx context.Context, date, period string) ([]dto.AttendanceResponse, error) {
	if err := s.validateSlot(date, period); err != nil {
		return nil, err
	}

	key := periodCacheKey(date, period)
	versionKeys := periodVersionKeys(date, period)
	var versions []int64
	if s.cache != nil {
		var cached []dto.AttendanceResponse
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("读取课节考勤缓存失败", zap.String("key", key), zap.Error(err))
		} else if hit {
			return cached, nil
		}
		// 版本号必须在读库之前取得
		if versions, err = s.cache.Versions(ctx, versionKeys...); err != nil {
			s.logger.Warn("读取课节缓存版本失败", zap.String("key", key), zap.Error(err))
			versions = nil
		}
	}

	records, err := s.repo.Attendance.ListByPeriod(ctx, date, period)
	if err != nil {
		s.logger.Error("查询课节考勤失败",
			zap.String("date", date), zap.String("period", period), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AttendanceResponse, 0, len(records))
	for i := range records {
		result = append(result, *toAttendanceResponse(&records[i]))
	}

	if s.cache != nil && versions != nil {
		stored, err := s.cache.SetJSONIfUnchanged(ctx, key, result, s.ttl, versionKeys, versions)
		if err != nil {
			s.logger.Warn("写入课节考勤缓存失败", zap.String("key", key), zap.Error(err))
		} else if !stored {
			s.logger.Debug("课节考勤已变更，跳过缓存回填", zap.String("key", key))
		}
	}

	return result, nil
}

// ────────────────────── DayHours ──────────────────────

func (s *attendanceService) DayHours(ctx context.Context, date string) (map[string]float64, error) {
	if !attendance.ValidDate(date) {
		return nil, ErrAttendanceInvalidDate
	}

	records, err := s.repo.Attendance.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询当日考勤失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	return attendance.SumHours(toEntries(records)), nil
}

// ────────────────────── Stats ──────────────────────

func (s *attendanceService) Stats(ctx context.Context, date, period string) (*dto.AttendanceStatsResponse, error) {
	if err := s.validateSlot(date, period); err != nil {
		return nil, err
	}

	students, err := s.repo.Student.List(ctx)
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, err
	}
	roster := make([]string, 0, len(students))
	for _, st := range students {
		roster = append(roster, st.StudentID)
	}

	dayRecords, err := s.repo.Attendance.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询当日考勤失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}

	var periodEntries []attendance.Entry
	for i := range dayRecords {
		if dayRecords[i].Period == period {
			periodEntries = append(periodEntries, toEntry(&dayRecords[i]))
		}
	}

	st := attendance.ComputeStats(
		roster,
		attendance.Index(periodEntries),
		attendance.SumHours(toEntries(dayRecords)),
		s.cfg.FullDayHours,
	)

	return &dto.AttendanceStatsResponse{
		Date:              date,
		Period:            period,
		Total:             st.Total,
		Present:           st.Present,
		Absent:            st.Absent,
		PartialPresent:    st.PartialPresent,
		PresentPercentage: st.PresentPercentage,
	}, nil
}

// ────────────────────── Mark ──────────────────────

func (s *attendanceService) Mark(ctx context.Context, req *dto.MarkAttendanceRequest) (*dto.AttendanceResponse, error) {
	if err := s.validateSlot(req.Date, req.Period); err != nil {
		return nil, err
	}

	rec, err := s.buildRecord(req.Date, req.Period, req.StudentID, req.Status, req.TimeRange, req.Hours)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Attendance.Upsert(ctx, []*model.AttendanceRecord{rec}); err != nil {
		return nil, s.translateWriteError(err, "标记考勤失败")
	}

	invalidatePeriod(ctx, s.cache, s.logger, req.Date, req.Period)
	s.metrics.ObserveMarks(rec.Status, 1)

	return toAttendanceResponse(rec), nil
}

// ────────────────────── BulkMark ──────────────────────

func (s *attendanceService) BulkMark(ctx context.Context, req *dto.BulkMarkAttendanceRequest) (*dto.BulkMarkResponse, error) {
	if err := s.validateSlot(req.Date, req.Period); err != nil {
		return nil, err
	}

	// 同一学生只写一条，保持请求中的先后顺序
	seen := make(map[string]bool, len(req.StudentIDs))
	records := make([]*model.AttendanceRecord, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		rec, err := s.buildRecord(req.Date, req.Period, id, req.Status, req.TimeRange, nil)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := s.repo.Attendance.Upsert(ctx, records); err != nil {
		return nil, s.translateWriteError(err, "批量标记考勤失败")
	}

	invalidatePeriod(ctx, s.cache, s.logger, req.Date, req.Period)
	s.metrics.ObserveMarks(req.Status, len(records))

	s.logger.Info("批量标记考勤完成",
		zap.String("date", req.Date),
		zap.String("period", req.Period),
		zap.String("status", req.Status),
		zap.Int("count", len(records)),
	)
	return &dto.BulkMarkResponse{Updated: len(records), Message: "Bulk attendance saved!"}, nil
}

// ────────────────────── SweepOrphans ──────────────────────

func (s *attendanceService) SweepOrphans(ctx context.Context) (int64, error) {
	removed, err := s.repo.Attendance.DeleteOrphans(ctx)
	if err != nil {
		s.logger.Error("清理孤儿考勤失败", zap.Error(err))
		return 0, err
	}
	if removed > 0 {
		invalidateAllAttendance(ctx, s.cache, s.logger)
		s.logger.Info("已清理孤儿考勤记录", zap.Int64("removed", removed))
	}
	s.metrics.ObserveSwept(removed)
	return removed, nil
}

// ── 内部辅助方法 ──

func (s *attendanceService) validateSlot(date, period string) error {
	if !attendance.ValidDate(date) {
		return ErrAttendanceInvalidDate
	}
	if !attendance.ValidPeriod(period, s.cfg.Periods) {
		return fmt.Errorf("%w: %q (1-%d)", ErrAttendanceInvalidPeriod, period, s.cfg.Periods)
	}
	return nil
}

// buildRecord 按状态生成考勤记录：
//   - present：附带时间段（请求未提供时取默认时间段），工时由时间段推导或使用显式值
//   - absent / 未标记：清空时间段与工时
func (s *attendanceService) buildRecord(date, period, studentID, status string, tr *dto.TimeRange, hours *float64) (*model.AttendanceRecord, error) {
	rec := &model.AttendanceRecord{
		Date:      date,
		Period:    period,
		StudentID: studentID,
		Status:    status,
	}

	switch status {
	case model.AttendanceStatusPresent:
		start, end := s.cfg.DefaultStartTime, s.cfg.DefaultEndTime
		if tr != nil {
			start, end = tr.StartTime, tr.EndTime
		}
		derived, err := attendance.HoursBetween(start, end)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAttendanceInvalidRange, err)
		}
		if hours != nil {
			if *hours < 0 {
				return nil, ErrAttendanceInvalidHours
			}
			derived = *hours
		}
		rec.Hours = derived
		rec.StartTime = &start
		rec.EndTime = &end
	case model.AttendanceStatusAbsent, model.AttendanceStatusUnset:
	default:
		return nil, ErrAttendanceInvalidStatus
	}

	return rec, nil
}

func (s *attendanceService) translateWriteError(err error, msg string) error {
	if errors.Is(err, pkgerrors.ErrStudentMissing) {
		return fmt.Errorf("%w: %v", ErrStudentNotFound, err)
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}

func toEntry(rec *model.AttendanceRecord) attendance.Entry {
	return attendance.Entry{StudentID: rec.StudentID, Status: rec.Status, Hours: rec.Hours}
}

func toEntries(records []model.AttendanceRecord) []attendance.Entry {
	entries := make([]attendance.Entry, 0, len(records))
	for i := range records {
		entries = append(entries, toEntry(&records[i]))
	}
	return entries
}

func toAttendanceResponse(rec *model.AttendanceRecord) *dto.AttendanceResponse {
	resp := &dto.AttendanceResponse{
		Date:      rec.Date,
		Period:    rec.Period,
		StudentID: rec.StudentID,
		Status:    rec.Status,
		Hours:     rec.Hours,
	}
	if rec.Status == model.AttendanceStatusPresent && rec.StartTime != nil && rec.EndTime != nil {
		resp.TimeRange = &dto.TimeRange{StartTime: *rec.StartTime, EndTime: *rec.EndTime}
	}
	return resp
}
