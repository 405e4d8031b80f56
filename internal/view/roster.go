package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"classroom-attendance/internal/attendance"
	"classroom-attendance/internal/client"
	"classroom-attendance/internal/dto"
)

var (
	ErrRosterFull     = errors.New("classroom capacity reached")
	ErrUnknownStudent = errors.New("Student not found")
)

// Form 新增 / 编辑学生的表单
type Form struct {
	Name       string
	RollNumber string
	Email      string
}

// Roster 花名册管理
type Roster struct {
	api      *client.API
	students *client.StudentStore
	capacity int
	Banner   *Banner

	// onDelete 删除学生后回调，用于让看板的考勤缓存失效
	onDelete func()

	mu        sync.RWMutex
	search    string
	editingID string
}

// NewRoster 创建花名册视图；capacity <= 0 时取 56
func NewRoster(api *client.API, students *client.StudentStore, capacity int, bannerTTL time.Duration) *Roster {
	if capacity <= 0 {
		capacity = attendance.Capacity
	}
	return &Roster{
		api:      api,
		students: students,
		capacity: capacity,
		Banner:   NewBanner(bannerTTL),
	}
}

// OnDelete 注册删除回调
func (r *Roster) OnDelete(fn func()) {
	r.onDelete = fn
}

func (r *Roster) Load(ctx context.Context) error {
	if err := r.students.Ensure(ctx); err != nil {
		return r.fail(err)
	}
	return nil
}

// Full 花名册是否已满
func (r *Roster) Full() bool {
	return r.students.Count() >= r.capacity
}

// Title 形如 Student List (12/56)
func (r *Roster) Title() string {
	return fmt.Sprintf("Student List (%d/%d)", r.students.Count(), r.capacity)
}

func (r *Roster) SetSearch(term string) {
	r.mu.Lock()
	r.search = term
	r.mu.Unlock()
}

// Filtered 按关键字过滤
func (r *Roster) Filtered() []dto.StudentResponse {
	r.mu.RLock()
	term := r.search
	r.mu.RUnlock()

	var out []dto.StudentResponse
	for _, s := range r.students.Students() {
		if attendance.Matches(term, s.Name, s.RollNumber, s.Email) {
			out = append(out, s)
		}
	}
	return out
}

// ────────────────────── 编辑 ──────────────────────

// Edit 进入编辑状态并返回该学生当前值
func (r *Roster) Edit(id string) (Form, error) {
	for _, s := range r.students.Students() {
		if s.ID == id {
			r.mu.Lock()
			r.editingID = id
			r.mu.Unlock()
			return Form{Name: s.Name, RollNumber: s.RollNumber, Email: s.Email}, nil
		}
	}
	return Form{}, ErrUnknownStudent
}

// Editing 当前编辑中的学生 ID，空表示新增模式
func (r *Roster) Editing() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.editingID
}

func (r *Roster) Cancel() {
	r.mu.Lock()
	r.editingID = ""
	r.mu.Unlock()
}

// Submit 编辑模式下更新，否则新增（新增前检查容量）
func (r *Roster) Submit(ctx context.Context, f Form) (*dto.StudentResponse, error) {
	if id := r.Editing(); id != "" {
		st, err := r.students.Update(ctx, id, dto.UpdateStudentRequest{
			Name:       &f.Name,
			RollNumber: &f.RollNumber,
			Email:      &f.Email,
		})
		if err != nil {
			return nil, r.fail(err)
		}
		r.Cancel()
		return st, nil
	}

	if r.Full() {
		return nil, r.capacityError()
	}
	st, err := r.students.Add(ctx, dto.CreateStudentRequest{Name: f.Name, RollNumber: f.RollNumber, Email: f.Email})
	if err != nil {
		return nil, r.fail(err)
	}
	return st, nil
}

// Delete 删除学生（服务端级联删除其考勤）
func (r *Roster) Delete(ctx context.Context, id string) error {
	res, err := r.students.Delete(ctx, id)
	if err != nil {
		return r.fail(err)
	}
	if r.Editing() == id {
		r.Cancel()
	}
	if r.onDelete != nil {
		r.onDelete()
	}
	r.Banner.Success(res.Message)
	return nil
}

// ────────────────────── CSV ──────────────────────

// Export 导出花名册 CSV
func (r *Roster) Export(ctx context.Context, w io.Writer) error {
	data, err := r.api.ExportStudentsCSV(ctx)
	if err != nil {
		return r.fail(err)
	}
	_, err = w.Write(data)
	return err
}

// Template 导出 56 行模板
func (r *Roster) Template(ctx context.Context, w io.Writer) error {
	data, err := r.api.TemplateCSV(ctx)
	if err != nil {
		return r.fail(err)
	}
	_, err = w.Write(data)
	return err
}

// Import 上传 CSV；花名册已满时不发起请求
func (r *Roster) Import(ctx context.Context, filename string, src io.Reader) (int, error) {
	if r.Full() {
		return 0, r.capacityError()
	}
	res, err := r.students.Import(ctx, filename, src)
	if err != nil {
		return 0, r.fail(err)
	}
	r.Banner.Success(res.Message)
	return res.Imported, nil
}

func (r *Roster) capacityError() error {
	r.Banner.Error(fmt.Sprintf("Classroom capacity (%d students) reached.", r.capacity))
	return ErrRosterFull
}

func (r *Roster) fail(err error) error {
	r.Banner.Error(err.Error())
	return err
}
