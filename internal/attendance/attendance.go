// Package attendance 考勤聚合规则：课节索引、统计、工时推导、座位表与检索过滤。
// 服务端统计接口与客户端看板共用同一套规则。
package attendance

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// SeatRows 座位表行数
	SeatRows = 7
	// SeatCols 座位表每行座位数
	SeatCols = 8
	// Capacity 教室座位总数
	Capacity = SeatRows * SeatCols

	// DefaultFullDayHours 单日累计工时低于该值且大于 0 视为部分出勤
	DefaultFullDayHours = 8.0

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var (
	ErrInvalidClock     = errors.New("time must be in HH:MM format")
	ErrInvalidTimeRange = errors.New("endTime must not be earlier than startTime")
)

// Entry 参与聚合的单条考勤
type Entry struct {
	StudentID string
	Status    string
	Hours     float64
}

// Stats 课节考勤统计
type Stats struct {
	Total             int `json:"total"`
	Present           int `json:"present"`
	Absent            int `json:"absent"`
	PartialPresent    int `json:"partialPresent"`
	PresentPercentage int `json:"presentPercentage"`
}

// Periods 返回 "1".."n" 课节编号
func Periods(n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

// ValidPeriod 判断课节编号是否落在 1..n
func ValidPeriod(period string, n int) bool {
	p, err := strconv.Atoi(period)
	if err != nil || strconv.Itoa(p) != period {
		return false
	}
	return p >= 1 && p <= n
}

// ValidDate 判断是否为合法的 YYYY-MM-DD 日期
func ValidDate(date string) bool {
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

// ValidClock 判断是否为合法的 HH:MM 时刻
func ValidClock(s string) bool {
	_, err := time.Parse(clockLayout, s)
	return err == nil && len(s) == len(clockLayout)
}

// HoursBetween 按 HH:MM 时间段计算工时，保留两位小数
func HoursBetween(start, end string) (float64, error) {
	if !ValidClock(start) || !ValidClock(end) {
		return 0, ErrInvalidClock
	}
	s, _ := time.Parse(clockLayout, start)
	e, _ := time.Parse(clockLayout, end)
	if e.Before(s) {
		return 0, ErrInvalidTimeRange
	}
	return math.Round(e.Sub(s).Hours()*100) / 100, nil
}

// Index 将课节考勤按学生 ID 建索引，同一学生出现多次时以后者为准
func Index(entries []Entry) map[string]Entry {
	idx := make(map[string]Entry, len(entries))
	for _, e := range entries {
		idx[e.StudentID] = e
	}
	return idx
}

// SumHours 按学生汇总单日各课节工时
func SumHours(entries []Entry) map[string]float64 {
	sum := make(map[string]float64)
	for _, e := range entries {
		sum[e.StudentID] += e.Hours
	}
	return sum
}

// ComputeStats 计算课节统计
//   - present/absent 统计该课节已取回的记录
//   - partialPresent 统计花名册中当日累计工时在 (0, fullDayHours) 之间的学生
//   - 花名册为空时全部为 0
func ComputeStats(roster []string, period map[string]Entry, dayHours map[string]float64, fullDayHours float64) Stats {
	if len(roster) == 0 {
		return Stats{}
	}
	if fullDayHours <= 0 {
		fullDayHours = DefaultFullDayHours
	}

	var st Stats
	st.Total = len(roster)
	for _, e := range period {
		switch e.Status {
		case "present":
			st.Present++
		case "absent":
			st.Absent++
		}
	}
	for _, id := range roster {
		if h := dayHours[id]; h > 0 && h < fullDayHours {
			st.PartialPresent++
		}
	}
	st.PresentPercentage = int(math.Round(float64(st.Present) / float64(st.Total) * 100))
	return st
}

// Toggle 座位点击切换：present → absent，其余（absent / 未标记）→ present
func Toggle(current string) string {
	if current == "present" {
		return "absent"
	}
	return "present"
}

// Matches 检索过滤：关键字为空时全部匹配，否则任一字段不区分大小写包含关键字即匹配
func Matches(term string, fields ...string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// SeatGrid 按花名册顺序排成每行 SeatCols 个座位，至少 SeatRows 行，空位为 nil
func SeatGrid[T any](roster []T) [][]*T {
	seats := len(roster)
	if seats < Capacity {
		seats = Capacity
	}
	if rem := seats % SeatCols; rem != 0 {
		seats += SeatCols - rem
	}

	rows := make([][]*T, 0, seats/SeatCols)
	for start := 0; start < seats; start += SeatCols {
		row := make([]*T, SeatCols)
		for col := 0; col < SeatCols; col++ {
			if i := start + col; i < len(roster) {
				row[col] = &roster[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// SeatLabel 座位坐标（行列从 1 开始），用于终端展示
func SeatLabel(row, col int) string {
	return fmt.Sprintf("R%dC%d", row+1, col+1)
}
