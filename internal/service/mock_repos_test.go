package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"classroom-attendance/internal/model"
	"classroom-attendance/internal/repository"
	pkgerrors "classroom-attendance/pkg/errors"
)

// ── 共享内存存储 ──
// 学生与考勤 mock 共用同一份数据，以便模拟级联删除与孤儿记录

type mockStore struct {
	students   []*model.Student
	attendance map[string]*model.AttendanceRecord // "date:period:studentID" → record
	nextID     int64
	now        time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		attendance: make(map[string]*model.AttendanceRecord),
		now:        time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC),
	}
}

func (s *mockStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *mockStore) findStudent(id string) *model.Student {
	for _, st := range s.students {
		if st.StudentID == id {
			return st
		}
	}
	return nil
}

func attendanceKey(date, period, studentID string) string {
	return date + ":" + period + ":" + studentID
}

// newMockRepository 组装 Repository 聚合，返回底层存储供断言
func newMockRepository() (*repository.Repository, *mockStore) {
	store := newMockStore()
	return &repository.Repository{
		Student:    &mockStudentRepo{store: store},
		Attendance: &mockAttendanceRepo{store: store},
	}, store
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	store *mockStore
	// listErr 非空时 List 返回该错误
	listErr error
}

func (m *mockStudentRepo) List(_ context.Context) ([]model.Student, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]model.Student, 0, len(m.store.students))
	for _, st := range m.store.students {
		result = append(result, *st)
	}
	return result, nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if st := m.store.findStudent(id); st != nil {
		cp := *st
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByRollNumber(_ context.Context, rollNumber string) (*model.Student, error) {
	for _, st := range m.store.students {
		if st.RollNumber == rollNumber {
			cp := *st
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.store.students)), nil
}

func (m *mockStudentRepo) CreateWithinCapacity(_ context.Context, students []*model.Student, capacity int) error {
	if len(m.store.students)+len(students) > capacity {
		return pkgerrors.ErrCapacityExceeded
	}
	ids := make(map[string]bool)
	rolls := make(map[string]bool)
	for _, st := range m.store.students {
		ids[st.StudentID] = true
		rolls[st.RollNumber] = true
	}
	for _, st := range students {
		if ids[st.StudentID] || rolls[st.RollNumber] {
			return gorm.ErrDuplicatedKey
		}
		ids[st.StudentID] = true
		rolls[st.RollNumber] = true
	}
	for _, st := range students {
		now := m.store.tick()
		st.CreatedAt, st.UpdatedAt = now, now
		cp := *st
		m.store.students = append(m.store.students, &cp)
	}
	return nil
}

func (m *mockStudentRepo) Update(_ context.Context, student *model.Student) error {
	for _, st := range m.store.students {
		if st.StudentID != student.StudentID && st.RollNumber == student.RollNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	existing := m.store.findStudent(student.StudentID)
	if existing == nil {
		return gorm.ErrRecordNotFound
	}
	student.UpdatedAt = m.store.tick()
	*existing = *student
	return nil
}

func (m *mockStudentRepo) DeleteWithAttendance(_ context.Context, id string) (int64, error) {
	idx := -1
	for i, st := range m.store.students {
		if st.StudentID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, gorm.ErrRecordNotFound
	}
	m.store.students = append(m.store.students[:idx], m.store.students[idx+1:]...)

	var removed int64
	for key, rec := range m.store.attendance {
		if rec.StudentID == id {
			delete(m.store.attendance, key)
			removed++
		}
	}
	return removed, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	store *mockStore
	// upsertCalls 记录 Upsert 调用次数（每次调用对应一个事务）
	upsertCalls int
	// afterList 非空时在 ListByPeriod 读库之后执行一次，用于模拟并发写入
	afterList func()
}

func (m *mockAttendanceRepo) ListByPeriod(_ context.Context, date, period string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, st := range m.store.students {
		if rec, ok := m.store.attendance[attendanceKey(date, period, st.StudentID)]; ok {
			result = append(result, *rec)
		}
	}
	if hook := m.afterList; hook != nil {
		m.afterList = nil
		hook()
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListByDate(_ context.Context, date string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, rec := range m.store.attendance {
		if rec.Date == date {
			result = append(result, *rec)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) Upsert(_ context.Context, records []*model.AttendanceRecord) error {
	m.upsertCalls++
	var missing []string
	for _, rec := range records {
		if m.store.findStudent(rec.StudentID) == nil {
			missing = append(missing, rec.StudentID)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", pkgerrors.ErrStudentMissing, strings.Join(missing, ", "))
	}
	for _, rec := range records {
		cp := *rec
		m.store.attendance[attendanceKey(rec.Date, rec.Period, rec.StudentID)] = &cp
	}
	return nil
}

func (m *mockAttendanceRepo) DeleteOrphans(_ context.Context) (int64, error) {
	var removed int64
	for key, rec := range m.store.attendance {
		if m.store.findStudent(rec.StudentID) == nil {
			delete(m.store.attendance, key)
			removed++
		}
	}
	return removed, nil
}

// ── Mock AttendanceCache ──

type mockCache struct {
	data     map[string][]byte
	versions map[string]int64
	deletes  []string
	// skippedFills 记录因版本变化而放弃的回填次数
	skippedFills int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), versions: make(map[string]int64)}
}

func (c *mockCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mockCache) Versions(_ context.Context, keys ...string) ([]int64, error) {
	out := make([]int64, len(keys))
	for i, k := range keys {
		out[i] = c.versions[k]
	}
	return out, nil
}

func (c *mockCache) SetJSONIfUnchanged(_ context.Context, key string, v interface{}, _ time.Duration, versionKeys []string, versions []int64) (bool, error) {
	for i, k := range versionKeys {
		if c.versions[k] != versions[i] {
			c.skippedFills++
			return false, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	c.data[key] = raw
	return true, nil
}

func (c *mockCache) Invalidate(_ context.Context, versionKey string, keys ...string) error {
	c.versions[versionKey]++
	for _, k := range keys {
		delete(c.data, k)
		c.deletes = append(c.deletes, k)
	}
	return nil
}

func (c *mockCache) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	c.deletes = append(c.deletes, pattern)
	return nil
}
