package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"classroom-attendance/internal/dto"
	"classroom-attendance/internal/rostercsv"
)

// ── 花名册导入导出业务错误 ──

var (
	ErrImportUnreadable  = errors.New("Could not read CSV file")
	ErrImportNoValidRows = errors.New("No valid student records found.")
	ErrImportTooManyRows = errors.New("too many students to import")
)

// importLimitError 导入行数超过座位上限，Error() 即面向用户的提示
type importLimitError struct {
	capacity int
}

func (e *importLimitError) Error() string {
	return fmt.Sprintf("Cannot import more than %d students.", e.capacity)
}

func (e *importLimitError) Is(target error) bool {
	return target == ErrImportTooManyRows
}

// RosterService 花名册 CSV 业务接口
//
// CSV 列固定为 name,rollNumber,email；导入时缺少 name 或 rollNumber 的行被跳过，
// 其余行交给 StudentService.BulkCreate 整批写入。
type RosterService interface {
	ExportCSV(ctx context.Context) (*bytes.Buffer, error)
	TemplateCSV() (*bytes.Buffer, error)
	ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportStudentsResponse, error)
}

type rosterService struct {
	students StudentService
	capacity int
	logger   *zap.Logger
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(students StudentService, capacity int, logger *zap.Logger) RosterService {
	return &rosterService{students: students, capacity: capacity, logger: logger}
}

// ────────────────────── ExportCSV ──────────────────────

func (s *rosterService) ExportCSV(ctx context.Context) (*bytes.Buffer, error) {
	students, err := s.students.List(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]rostercsv.Row, 0, len(students))
	for _, st := range students {
		rows = append(rows, rostercsv.Row{Name: st.Name, RollNumber: st.RollNumber, Email: st.Email})
	}

	buf := new(bytes.Buffer)
	if err := rostercsv.Encode(buf, rows); err != nil {
		s.logger.Error("生成花名册 CSV 失败", zap.Error(err))
		return nil, err
	}
	return buf, nil
}

// ────────────────────── TemplateCSV ──────────────────────

func (s *rosterService) TemplateCSV() (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := rostercsv.Encode(buf, rostercsv.Template(s.capacity)); err != nil {
		s.logger.Error("生成花名册模板失败", zap.Error(err))
		return nil, err
	}
	return buf, nil
}

// ────────────────────── ImportCSV ──────────────────────

func (s *rosterService) ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportStudentsResponse, error) {
	rows, err := rostercsv.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}

	valid := rostercsv.ValidRows(rows)
	if len(valid) == 0 {
		return nil, ErrImportNoValidRows
	}
	if len(valid) > s.capacity {
		return nil, &importLimitError{capacity: s.capacity}
	}

	reqs := make([]dto.CreateStudentRequest, 0, len(valid))
	for _, row := range valid {
		reqs = append(reqs, dto.CreateStudentRequest{
			Name:       row.Name,
			RollNumber: row.RollNumber,
			Email:      row.Email,
		})
	}

	created, err := s.students.BulkCreate(ctx, reqs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("花名册导入完成",
		zap.Int("rows", len(rows)),
		zap.Int("imported", len(created)),
	)
	return &dto.ImportStudentsResponse{
		Imported: len(created),
		Message:  fmt.Sprintf("Successfully imported %d student records.", len(created)),
		Students: created,
	}, nil
}
