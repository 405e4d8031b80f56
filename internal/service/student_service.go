package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"classroom-attendance/internal/dto"
	"classroom-attendance/internal/model"
	"classroom-attendance/internal/repository"
	pkgerrors "classroom-attendance/pkg/errors"
)

// ── 学生模块业务错误 ──

var (
	ErrStudentNotFound        = errors.New("Student not found")
	ErrStudentFieldsRequired  = errors.New("Name and rollNumber are required")
	ErrStudentBulkInvalid     = errors.New("Each student must have a name and rollNumber")
	ErrStudentBulkEmpty       = errors.New("No students provided")
	ErrStudentRollNumberTaken = errors.New("Roll number already exists")
	ErrStudentIDTaken         = errors.New("Student id already exists")
	ErrStudentConflict        = errors.New("Student already exists")
	ErrRosterFull             = errors.New("Classroom capacity reached")
)

// StudentService 学生业务接口
type StudentService interface {
	List(ctx context.Context) ([]dto.StudentResponse, error)
	Create(ctx context.Context, req *dto.CreateStudentRequest) (*dto.StudentResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error)
	Delete(ctx context.Context, id string) (*dto.DeleteStudentResponse, error)
	// BulkCreate 整批校验后在一个事务内写入；任一候选不合法或写入失败则整批拒绝
	BulkCreate(ctx context.Context, reqs []dto.CreateStudentRequest) ([]dto.StudentResponse, error)
}

type studentService struct {
	repo     *repository.Repository
	cache    AttendanceCache
	capacity int
	ids      *idGenerator
	logger   *zap.Logger
}

// NewStudentService 创建 StudentService 实例；cache 可为 nil
func NewStudentService(repo *repository.Repository, cache AttendanceCache, capacity int, logger *zap.Logger) StudentService {
	return &studentService{
		repo:     repo,
		cache:    cache,
		capacity: capacity,
		ids:      newIDGenerator(),
		logger:   logger,
	}
}

// ────────────────────── List ──────────────────────

func (s *studentService) List(ctx context.Context) ([]dto.StudentResponse, error) {
	students, err := s.repo.Student.List(ctx)
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, *toStudentResponse(&students[i]))
	}
	return result, nil
}

// ────────────────────── Create ──────────────────────

func (s *studentService) Create(ctx context.Context, req *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	name := strings.TrimSpace(req.Name)
	rollNumber := strings.TrimSpace(req.RollNumber)
	if name == "" || rollNumber == "" {
		return nil, ErrStudentFieldsRequired
	}

	if _, err := s.repo.Student.GetByRollNumber(ctx, rollNumber); err == nil {
		return nil, ErrStudentRollNumberTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学号失败", zap.String("roll_number", rollNumber), zap.Error(err))
		return nil, err
	}

	id, err := s.resolveID(ctx, strings.TrimSpace(req.ID))
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		StudentID:  id,
		Name:       name,
		RollNumber: rollNumber,
		Email:      strings.TrimSpace(req.Email),
	}

	if err := s.repo.Student.CreateWithinCapacity(ctx, []*model.Student{student}, s.capacity); err != nil {
		return nil, s.translateWriteError(err, "创建学生失败")
	}

	s.logger.Info("学生已创建", zap.String("id", id), zap.String("roll_number", rollNumber))
	return toStudentResponse(student), nil
}

// resolveID 使用请求中的 ID（需未被占用），否则生成时间戳 ID；同一毫秒已占用时追加随机后缀
func (s *studentService) resolveID(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		taken, err := s.idTaken(ctx, requested)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrStudentIDTaken
		}
		return requested, nil
	}

	id := s.ids.Base()
	taken, err := s.idTaken(ctx, id)
	if err != nil {
		return "", err
	}
	if taken {
		return s.ids.WithSuffix()
	}
	return id, nil
}

func (s *studentService) idTaken(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.Student.GetByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
	return false, err
}

// ────────────────────── Update ──────────────────────

func (s *studentService) Update(ctx context.Context, id string, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 仅覆盖请求中出现的字段；email 允许显式清空，name / rollNumber 不允许为空
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrStudentFieldsRequired
		}
		student.Name = name
	}
	if req.RollNumber != nil {
		rollNumber := strings.TrimSpace(*req.RollNumber)
		if rollNumber == "" {
			return nil, ErrStudentFieldsRequired
		}
		if rollNumber != student.RollNumber {
			other, err := s.repo.Student.GetByRollNumber(ctx, rollNumber)
			if err == nil && other.StudentID != student.StudentID {
				return nil, ErrStudentRollNumberTaken
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Error("查询学号失败", zap.String("roll_number", rollNumber), zap.Error(err))
				return nil, err
			}
		}
		student.RollNumber = rollNumber
	}
	if req.Email != nil {
		student.Email = strings.TrimSpace(*req.Email)
	}

	if err := s.repo.Student.Update(ctx, student); err != nil {
		return nil, s.translateWriteError(err, "更新学生失败")
	}

	return toStudentResponse(student), nil
}

// ────────────────────── Delete ──────────────────────

func (s *studentService) Delete(ctx context.Context, id string) (*dto.DeleteStudentResponse, error) {
	if _, err := s.repo.Student.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	removed, err := s.repo.Student.DeleteWithAttendance(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("删除学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 被删除学生可能出现在任意日期的课节缓存中
	invalidateAllAttendance(ctx, s.cache, s.logger)

	s.logger.Info("学生已删除",
		zap.String("id", id),
		zap.Int64("attendance_removed", removed),
	)
	return &dto.DeleteStudentResponse{Message: "Student deleted", AttendanceRemoved: removed}, nil
}

// ────────────────────── BulkCreate ──────────────────────

func (s *studentService) BulkCreate(ctx context.Context, reqs []dto.CreateStudentRequest) ([]dto.StudentResponse, error) {
	if len(reqs) == 0 {
		return nil, ErrStudentBulkEmpty
	}

	// 第一阶段：整批校验（不接触写操作）
	for i, req := range reqs {
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.RollNumber) == "" {
			return nil, fmt.Errorf("%w (item %d)", ErrStudentBulkInvalid, i+1)
		}
	}

	existing, err := s.repo.Student.List(ctx)
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, err
	}
	if len(existing)+len(reqs) > s.capacity {
		return nil, fmt.Errorf("%w: %d of %d seats taken, cannot add %d", ErrRosterFull, len(existing), s.capacity, len(reqs))
	}

	takenIDs := make(map[string]bool, len(existing)+len(reqs))
	takenRolls := make(map[string]bool, len(existing)+len(reqs))
	for _, st := range existing {
		takenIDs[st.StudentID] = true
		takenRolls[st.RollNumber] = true
	}

	students := make([]*model.Student, 0, len(reqs))
	for i, req := range reqs {
		rollNumber := strings.TrimSpace(req.RollNumber)
		if takenRolls[rollNumber] {
			return nil, fmt.Errorf("%w: %s (item %d)", ErrStudentRollNumberTaken, rollNumber, i+1)
		}
		takenRolls[rollNumber] = true

		id := strings.TrimSpace(req.ID)
		if id != "" {
			if takenIDs[id] {
				return nil, fmt.Errorf("%w: %s (item %d)", ErrStudentIDTaken, id, i+1)
			}
		} else {
			for id == "" || takenIDs[id] {
				if id, err = s.ids.WithSuffix(); err != nil {
					return nil, err
				}
			}
		}
		takenIDs[id] = true

		students = append(students, &model.Student{
			StudentID:  id,
			Name:       strings.TrimSpace(req.Name),
			RollNumber: rollNumber,
			Email:      strings.TrimSpace(req.Email),
		})
	}

	// 第二阶段：单事务写入，任一失败整体回滚
	if err := s.repo.Student.CreateWithinCapacity(ctx, students, s.capacity); err != nil {
		return nil, s.translateWriteError(err, "批量创建学生失败")
	}

	s.logger.Info("批量创建学生完成", zap.Int("count", len(students)))

	result := make([]dto.StudentResponse, 0, len(students))
	for _, st := range students {
		result = append(result, *toStudentResponse(st))
	}
	return result, nil
}

// ── 内部辅助方法 ──

// translateWriteError 将存储层写入错误映射为业务错误
func (s *studentService) translateWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, pkgerrors.ErrCapacityExceeded):
		return fmt.Errorf("%w (%d seats)", ErrRosterFull, s.capacity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrStudentConflict
	default:
		s.logger.Error(msg, zap.Error(err))
		return err
	}
}

func toStudentResponse(st *model.Student) *dto.StudentResponse {
	return &dto.StudentResponse{
		ID:         st.StudentID,
		Name:       st.Name,
		RollNumber: st.RollNumber,
		Email:      st.Email,
		CreatedAt:  st.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  st.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
