package view

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"classroom-attendance/internal/attendance"
	"classroom-attendance/internal/client"
	"classroom-attendance/internal/dto"
)

var (
	ErrInvalidDate       = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidPeriod     = errors.New("unknown period")
	ErrInvalidBulkStatus = errors.New("bulk status must be present or absent")
	ErrNoFilteredStudent = errors.New("No students match the current search.")
)

// DashboardOptions 看板初始参数，零值字段取默认
type DashboardOptions struct {
	Date         string
	Period       string
	Periods      int
	TimeRange    dto.TimeRange
	FullDayHours float64
	BannerTTL    time.Duration
}

// Row 列表视图中的一行
type Row struct {
	StudentID  string
	RollNumber string
	Name       string
	Email      string
	TimePeriod string
	Hours      string
	Status     string
}

// Seat 座位视图中的一格；Student 为 nil 表示空位
type Seat struct {
	Label   string
	Student *dto.StudentResponse
	Status  string
	Hours   float64
}

// Dashboard 考勤看板
type Dashboard struct {
	students   *client.StudentStore
	attendance *client.AttendanceStore
	Banner     *Banner

	periods      int
	fullDayHours float64

	mu         sync.RWMutex
	timeRange  dto.TimeRange
	search     string
	bulkStatus string
}

// NewDashboard 创建看板；opts.Date 为空时取当天
func NewDashboard(api *client.API, students *client.StudentStore, opts DashboardOptions) *Dashboard {
	if opts.Date == "" {
		opts.Date = time.Now().Format("2006-01-02")
	}
	if opts.Period == "" {
		opts.Period = "1"
	}
	if opts.Periods <= 0 {
		opts.Periods = 6
	}
	if opts.TimeRange.StartTime == "" || opts.TimeRange.EndTime == "" {
		opts.TimeRange = dto.TimeRange{StartTime: "09:00", EndTime: "11:00"}
	}
	if opts.FullDayHours <= 0 {
		opts.FullDayHours = attendance.DefaultFullDayHours
	}

	return &Dashboard{
		students:     students,
		attendance:   client.NewAttendanceStore(api, opts.Date, opts.Period),
		Banner:       NewBanner(opts.BannerTTL),
		periods:      opts.Periods,
		fullDayHours: opts.FullDayHours,
		timeRange:    opts.TimeRange,
		bulkStatus:   "present",
	}
}

// ────────────────────── 数据加载 ──────────────────────

// Load 拉取花名册；花名册非空时拉取当前课节考勤
func (d *Dashboard) Load(ctx context.Context) error {
	if err := d.students.Ensure(ctx); err != nil {
		return d.fail(err)
	}
	if d.students.Count() == 0 {
		return nil
	}
	if err := d.attendance.Ensure(ctx); err != nil {
		return d.fail(err)
	}
	return nil
}

// Reload 强制重新拉取
func (d *Dashboard) Reload(ctx context.Context) error {
	d.students.Invalidate()
	d.attendance.Invalidate()
	return d.Load(ctx)
}

// ────────────────────── 选择条件 ──────────────────────

func (d *Dashboard) SelectDate(ctx context.Context, date string) error {
	if !attendance.ValidDate(date) {
		return ErrInvalidDate
	}
	_, period := d.attendance.Selection()
	d.attendance.Select(date, period)
	return d.Load(ctx)
}

func (d *Dashboard) SelectPeriod(ctx context.Context, period string) error {
	if !attendance.ValidPeriod(period, d.periods) {
		return ErrInvalidPeriod
	}
	date, _ := d.attendance.Selection()
	d.attendance.Select(date, period)
	return d.Load(ctx)
}

// Selection 当前日期与课节
func (d *Dashboard) Selection() (string, string) {
	return d.attendance.Selection()
}

// Periods 可选课节
func (d *Dashboard) Periods() []string {
	return attendance.Periods(d.periods)
}

// SetTimeRange 设置标记出勤时使用的时间段
func (d *Dashboard) SetTimeRange(start, end string) error {
	if _, err := attendance.HoursBetween(start, end); err != nil {
		return err
	}
	d.mu.Lock()
	d.timeRange = dto.TimeRange{StartTime: start, EndTime: end}
	d.mu.Unlock()
	return nil
}

func (d *Dashboard) TimeRange() dto.TimeRange {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.timeRange
}

func (d *Dashboard) SetSearch(term string) {
	d.mu.Lock()
	d.search = term
	d.mu.Unlock()
}

// SetBulkStatus 设置批量标记使用的状态
func (d *Dashboard) SetBulkStatus(status string) error {
	if status != "present" && status != "absent" {
		return ErrInvalidBulkStatus
	}
	d.mu.Lock()
	d.bulkStatus = status
	d.mu.Unlock()
	return nil
}

func (d *Dashboard) BulkStatus() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bulkStatus
}

// ────────────────────── 派生视图 ──────────────────────

// Filtered 按检索关键字过滤后的学生（保持花名册顺序）
func (d *Dashboard) Filtered() []dto.StudentResponse {
	d.mu.RLock()
	term := d.search
	d.mu.RUnlock()

	var out []dto.StudentResponse
	for _, s := range d.students.Students() {
		if attendance.Matches(term, s.Name, s.RollNumber, s.Email) {
			out = append(out, s)
		}
	}
	return out
}

// Rows 列表视图
func (d *Dashboard) Rows() []Row {
	tr := d.TimeRange()
	period := tr.StartTime + " - " + tr.EndTime

	filtered := d.Filtered()
	rows := make([]Row, 0, len(filtered))
	for _, s := range filtered {
		row := Row{
			StudentID:  s.ID,
			RollNumber: s.RollNumber,
			Name:       s.Name,
			Email:      s.Email,
			TimePeriod: period,
			Hours:      "-",
		}
		if row.Email == "" {
			row.Email = "-"
		}
		if rec, ok := d.attendance.Record(s.ID); ok {
			row.Status = rec.Status
			if rec.Status == "present" {
				row.Hours = strconv.FormatFloat(rec.Hours, 'f', -1, 64)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Seats 座位视图：按花名册顺序排成 7×8，不受检索过滤影响
func (d *Dashboard) Seats() [][]Seat {
	records := d.attendance.Records()
	grid := attendance.SeatGrid(d.students.Students())

	out := make([][]Seat, len(grid))
	for r, row := range grid {
		out[r] = make([]Seat, len(row))
		for c, st := range row {
			seat := Seat{Label: attendance.SeatLabel(r, c), Student: st}
			if st != nil {
				rec := records[st.ID]
				seat.Status, seat.Hours = rec.Status, rec.Hours
			}
			out[r][c] = seat
		}
	}
	return out
}

// Stats 当前课节统计
func (d *Dashboard) Stats() attendance.Stats {
	students := d.students.Students()
	roster := make([]string, 0, len(students))
	for _, s := range students {
		roster = append(roster, s.ID)
	}

	period := make(map[string]attendance.Entry)
	for id, rec := range d.attendance.Records() {
		period[id] = attendance.Entry{StudentID: id, Status: rec.Status, Hours: rec.Hours}
	}
	return attendance.ComputeStats(roster, period, d.attendance.DayHours(), d.fullDayHours)
}

// ────────────────────── 标记操作 ──────────────────────

// Mark 标记单个学生；present 时附带当前时间段
func (d *Dashboard) Mark(ctx context.Context, studentID, status string) error {
	date, period := d.attendance.Selection()
	req := dto.MarkAttendanceRequest{Date: date, Period: period, StudentID: studentID, Status: status}
	if status == "present" {
		tr := d.TimeRange()
		req.TimeRange = &tr
	}

	msg, err := d.attendance.Mark(ctx, req)
	if err != nil {
		return d.fail(err)
	}
	d.Banner.Success(msg)
	return nil
}

// ToggleSeat 点击座位：present ↔ absent，空位忽略
func (d *Dashboard) ToggleSeat(ctx context.Context, row, col int) error {
	seats := d.Seats()
	if row < 0 || row >= len(seats) || col < 0 || col >= len(seats[row]) {
		return nil
	}
	seat := seats[row][col]
	if seat.Student == nil {
		return nil
	}
	return d.Mark(ctx, seat.Student.ID, attendance.Toggle(seat.Status))
}

// BulkMark 将批量状态应用到当前过滤出的全部学生，返回更新数量
func (d *Dashboard) BulkMark(ctx context.Context) (int, error) {
	filtered := d.Filtered()
	if len(filtered) == 0 {
		return 0, d.fail(ErrNoFilteredStudent)
	}
	ids := make([]string, 0, len(filtered))
	for _, s := range filtered {
		ids = append(ids, s.ID)
	}

	date, period := d.attendance.Selection()
	status := d.BulkStatus()
	req := dto.BulkMarkAttendanceRequest{Date: date, Period: period, Status: status, StudentIDs: ids}
	if status == "present" {
		tr := d.TimeRange()
		req.TimeRange = &tr
	}

	res, err := d.attendance.BulkMark(ctx, req)
	if err != nil {
		return 0, d.fail(err)
	}
	d.Banner.Success(res.Message)
	return res.Updated, nil
}

// InvalidateAttendance 外部删除学生后调用
func (d *Dashboard) InvalidateAttendance() {
	d.attendance.Invalidate()
}

func (d *Dashboard) fail(err error) error {
	d.Banner.Error(err.Error())
	return err
}
