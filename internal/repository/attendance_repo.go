package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classroom-attendance/internal/model"
	pkgerrors "classroom-attendance/pkg/errors"
)

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	ListByPeriod(ctx context.Context, date, period string) ([]model.AttendanceRecord, error)
	ListByDate(ctx context.Context, date string) ([]model.AttendanceRecord, error)
	// Upsert 按 (date, period, student_id) 覆盖写入；引用的学生必须全部存在，否则整体不写入
	Upsert(ctx context.Context, records []*model.AttendanceRecord) error
	// DeleteOrphans 删除引用不存在学生的考勤记录（幂等）
	DeleteOrphans(ctx context.Context) (int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) ListByPeriod(ctx context.Context, date, period string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("date = ? AND period = ?", date, period).
		Order("student_id ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByDate(ctx context.Context, date string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("period ASC, student_id ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) Upsert(ctx context.Context, records []*model.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if !seen[rec.StudentID] {
			seen[rec.StudentID] = true
			ids = append(ids, rec.StudentID)
		}
	}
	sort.Strings(ids)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// FOR SHARE 锁住被引用的学生行，并发删除需等待本事务结束，避免产生孤儿记录
		var found []string
		err := tx.Model(&model.Student{}).
			Clauses(clause.Locking{Strength: "SHARE"}).
			Where("student_id IN ?", ids).
			Order("student_id ASC").
			Pluck("student_id", &found).Error
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			return fmt.Errorf("%w: %s", pkgerrors.ErrStudentMissing, strings.Join(missing(ids, found), ", "))
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "period"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "hours", "start_time", "end_time", "updated_at"}),
		}).CreateInBatches(records, 100).Error
	})
}

func (r *attendanceRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM students s WHERE s.student_id = attendance_records.student_id)").
		Delete(&model.AttendanceRecord{})
	return res.RowsAffected, res.Error
}

// missing 返回 want 中不在 got 里的元素
func missing(want, got []string) []string {
	have := make(map[string]bool, len(got))
	for _, g := range got {
		have[g] = true
	}
	var out []string
	for _, w := range want {
		if !have[w] {
			out = append(out, w)
		}
	}
	return out
}
