package client

import (
	"context"
	"io"
	"sync"

	"classroom-attendance/internal/dto"
)

// ────────────────────── StudentStore ──────────────────────

// StudentStore 客户端花名册仓库
// 持有最近一次拉取的学生列表；变更操作先调用 API，成功后重新拉取。
// 并发刷新时后写入者生效。
type StudentStore struct {
	api *API

	mu       sync.RWMutex
	students []dto.StudentResponse
	loaded   bool
}

// NewStudentStore 创建 StudentStore
func NewStudentStore(api *API) *StudentStore {
	return &StudentStore{api: api}
}

// Refresh 从服务端重新拉取学生列表
func (s *StudentStore) Refresh(ctx context.Context) error {
	students, err := s.api.ListStudents(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.students = students
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Invalidate 标记缓存过期，下次 Ensure 时重新拉取
func (s *StudentStore) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

// Ensure 仅在未加载或已过期时拉取
func (s *StudentStore) Ensure(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Students 返回学生列表副本（按创建顺序）
func (s *StudentStore) Students() []dto.StudentResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dto.StudentResponse, len(s.students))
	copy(out, s.students)
	return out
}

// Count 当前学生数
func (s *StudentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students)
}

func (s *StudentStore) Add(ctx context.Context, req dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	st, err := s.api.CreateStudent(ctx, req)
	if err != nil {
		return nil, err
	}
	return st, s.Refresh(ctx)
}

func (s *StudentStore) BulkAdd(ctx context.Context, reqs []dto.CreateStudentRequest) ([]dto.StudentResponse, error) {
	created, err := s.api.BulkCreateStudents(ctx, reqs)
	if err != nil {
		return nil, err
	}
	return created, s.Refresh(ctx)
}

func (s *StudentStore) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	st, err := s.api.UpdateStudent(ctx, id, req)
	if err != nil {
		return nil, err
	}
	return st, s.Refresh(ctx)
}

// Delete 删除学生；服务端同时删除其考勤，调用方应使 AttendanceStore 失效
func (s *StudentStore) Delete(ctx context.Context, id string) (*dto.DeleteStudentResponse, error) {
	res, err := s.api.DeleteStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	return res, s.Refresh(ctx)
}

func (s *StudentStore) Import(ctx context.Context, filename string, r io.Reader) (*dto.ImportStudentsResponse, error) {
	res, err := s.api.ImportStudentsCSV(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	return res, s.Refresh(ctx)
}

// ────────────────────── AttendanceStore ──────────────────────

// AttendanceStore 客户端考勤仓库，缓存当前选中 (date, period) 的记录与当日累计工时
type AttendanceStore struct {
	api *API

	mu      sync.RWMutex
	date    string
	period  string
	records map[string]dto.AttendanceResponse
	hours   map[string]float64
	loaded  bool
}

// NewAttendanceStore 创建 AttendanceStore
func NewAttendanceStore(api *API, date, period string) *AttendanceStore {
	return &AttendanceStore{
		api:     api,
		date:    date,
		period:  period,
		records: map[string]dto.AttendanceResponse{},
		hours:   map[string]float64{},
	}
}

// Select 切换日期 / 课节，缓存随之失效
func (s *AttendanceStore) Select(date, period string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.date != date || s.period != period {
		s.date, s.period = date, period
		s.loaded = false
	}
}

// Selection 当前选中的日期与课节
func (s *AttendanceStore) Selection() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.date, s.period
}

// Refresh 拉取当前选中课节的记录及当日累计工时
func (s *AttendanceStore) Refresh(ctx context.Context) error {
	date, period := s.Selection()

	records, err := s.api.ListAttendance(ctx, date, period)
	if err != nil {
		return err
	}
	hours, err := s.api.DayHours(ctx, date)
	if err != nil {
		return err
	}

	idx := make(map[string]dto.AttendanceResponse, len(records))
	for _, r := range records {
		idx[r.StudentID] = r
	}

	// 拉取期间选择已切换时结果照常写入，但不标记为已加载，下次 Ensure 重新拉取
	s.mu.Lock()
	s.records = idx
	s.hours = hours
	s.loaded = s.date == date && s.period == period
	s.mu.Unlock()
	return nil
}

func (s *AttendanceStore) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

func (s *AttendanceStore) Ensure(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Record 返回某学生在当前课节的记录
func (s *AttendanceStore) Record(studentID string) (dto.AttendanceResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[studentID]
	return r, ok
}

// Records 当前课节记录（按学生 ID 索引）副本
func (s *AttendanceStore) Records() map[string]dto.AttendanceResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]dto.AttendanceResponse, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// DayHours 当日各学生累计工时副本
func (s *AttendanceStore) DayHours() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.hours))
	for k, v := range s.hours {
		out[k] = v
	}
	return out
}

// Mark 标记单个学生并刷新，返回服务端提示文案
func (s *AttendanceStore) Mark(ctx context.Context, req dto.MarkAttendanceRequest) (string, error) {
	_, msg, err := s.api.MarkAttendance(ctx, req)
	if err != nil {
		return "", err
	}
	return msg, s.Refresh(ctx)
}

// BulkMark 批量标记并刷新
func (s *AttendanceStore) BulkMark(ctx context.Context, req dto.BulkMarkAttendanceRequest) (*dto.BulkMarkResponse, error) {
	res, err := s.api.BulkMarkAttendance(ctx, req)
	if err != nil {
		return nil, err
	}
	return res, s.Refresh(ctx)
}
