package repository

import (
	"context"

	"gorm.io/gorm"

	"classroom-attendance/internal/model"
	pkgerrors "classroom-attendance/pkg/errors"
)

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	List(ctx context.Context) ([]model.Student, error)
	GetByID(ctx context.Context, id string) (*model.Student, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (*model.Student, error)
	Count(ctx context.Context) (int64, error)
	// CreateWithinCapacity 在同一事务内校验容量并写入全部学生，任一失败整体回滚
	CreateWithinCapacity(ctx context.Context, students []*model.Student, capacity int) error
	Update(ctx context.Context, student *model.Student) error
	// DeleteWithAttendance 在同一事务内删除学生及其全部考勤记录，返回删除的考勤条数
	DeleteWithAttendance(ctx context.Context, id string) (int64, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) List(ctx context.Context) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Order("created_at ASC, student_id ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var s model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) GetByRollNumber(ctx context.Context, rollNumber string) (*model.Student, error) {
	var s model.Student
	err := r.db.WithContext(ctx).
		Where("roll_number = ?", rollNumber).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Student{}).Count(&count).Error
	return count, err
}

func (r *studentRepo) CreateWithinCapacity(ctx context.Context, students []*model.Student, capacity int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 表级锁串行化并发写入，保证“计数 + 插入”不被穿插
		if err := tx.Exec("LOCK TABLE students IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.Student{}).Count(&count).Error; err != nil {
			return err
		}
		if int(count)+len(students) > capacity {
			return pkgerrors.ErrCapacityExceeded
		}

		return tx.CreateInBatches(students, 100).Error
	})
}

func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *studentRepo) DeleteWithAttendance(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("student_id = ?", id).Delete(&model.Student{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		res = tx.Where("student_id = ?", id).Delete(&model.AttendanceRecord{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}
