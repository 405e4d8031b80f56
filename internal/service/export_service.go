package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"classroom-attendance/internal/attendance"
	"classroom-attendance/internal/model"
	"classroom-attendance/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("Failed to generate spreadsheet")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 按日期导出考勤为 Excel (.xlsx)，一个 Sheet
//   - 行为花名册中的学生（按创建顺序），列为各课节状态及当日累计工时
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportAttendance 导出某日考勤为 Excel
	ExportAttendance(ctx context.Context, date string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo    *repository.Repository
	periods int
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, periods int, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, periods: periods, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance: 导出当日考勤为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Attendance"
//   - 第 1 行：标题（日期），第 2 行：表头
//   - 列：学号 | 姓名 | 邮箱 | P1 ~ Pn | 当日工时
//   - 课节单元格：present 显示 "present (h)"，absent 显示 "absent"，未标记为 "-"
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportAttendance(ctx context.Context, date string) (*bytes.Buffer, string, error) {
	if !attendance.ValidDate(date) {
		return nil, "", ErrAttendanceInvalidDate
	}

	// 1. 查询花名册与当日考勤
	students, err := s.repo.Student.List(ctx)
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, "", err
	}
	records, err := s.repo.Attendance.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询当日考勤失败", zap.String("date", date), zap.Error(err))
		return nil, "", err
	}

	// 2. 构建索引: "period:studentID" → record
	index := make(map[string]*model.AttendanceRecord, len(records))
	for i := range records {
		index[records[i].Period+":"+records[i].StudentID] = &records[i]
	}
	dayHours := attendance.SumHours(toEntries(records))
	periods := attendance.Periods(s.periods)

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Attendance"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	lastCol := colName(3 + len(periods))

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 22)
	f.SetColWidth(sheetName, "C", "C", 28)
	f.SetColWidth(sheetName, colName(3), colName(2+len(periods)), 16)
	f.SetColWidth(sheetName, lastCol, lastCol, 12)

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Attendance %s", date))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "Roll Number")
	f.SetCellValue(sheetName, cell("B", row), "Name")
	f.SetCellValue(sheetName, cell("C", row), "Email")
	for i, p := range periods {
		f.SetCellValue(sheetName, cell(colName(3+i), row), "Period "+p)
	}
	f.SetCellValue(sheetName, cell(lastCol, row), "Hours")
	f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), headerStyle)

	// 数据行
	row = 3
	for _, st := range students {
		f.SetCellValue(sheetName, cell("A", row), st.RollNumber)
		f.SetCellValue(sheetName, cell("B", row), st.Name)
		f.SetCellValue(sheetName, cell("C", row), st.Email)

		for i, p := range periods {
			f.SetCellValue(sheetName, cell(colName(3+i), row), periodCellText(index[p+":"+st.StudentID]))
		}
		f.SetCellValue(sheetName, cell(lastCol, row), dayHours[st.StudentID])
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("attendance_%s.xlsx", date)
	return buf, filename, nil
}

// ── 辅助函数 ──

func periodCellText(rec *model.AttendanceRecord) string {
	if rec == nil {
		return "-"
	}
	switch rec.Status {
	case model.AttendanceStatusPresent:
		return fmt.Sprintf("present (%.2fh)", rec.Hours)
	case model.AttendanceStatusAbsent:
		return "absent"
	default:
		return "-"
	}
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
