package dto

// ── 考勤模块 DTO ──

// TimeRange 出勤时间段（HH:MM）
type TimeRange struct {
	StartTime string `json:"startTime" binding:"required,hhmm"`
	EndTime   string `json:"endTime"   binding:"required,hhmm"`
}

// AttendanceQuery 课节考勤查询参数
type AttendanceQuery struct {
	Date   string `form:"date"   binding:"required,datetime=2006-01-02"`
	Period string `form:"period" binding:"required,period"`
}

// DayQuery 单日查询参数
type DayQuery struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// MarkAttendanceRequest 单个学生标记考勤
// Status 为空字符串表示取消标记；Hours 非空时覆盖由时间段推导的工时
type MarkAttendanceRequest struct {
	Date      string     `json:"date"      binding:"required,datetime=2006-01-02"`
	Period    string     `json:"period"    binding:"required,period"`
	StudentID string     `json:"studentId" binding:"required,max=64"`
	Status    string     `json:"status"    binding:"omitempty,oneof=present absent"`
	TimeRange *TimeRange `json:"timeRange"`
	Hours     *float64   `json:"hours"     binding:"omitempty,min=0,max=24"`
}

// BulkMarkAttendanceRequest 批量标记考勤：同一状态应用到一组学生
type BulkMarkAttendanceRequest struct {
	Date       string     `json:"date"       binding:"required,datetime=2006-01-02"`
	Period     string     `json:"period"     binding:"required,period"`
	Status     string     `json:"status"     binding:"omitempty,oneof=present absent"`
	StudentIDs []string   `json:"studentIds" binding:"required,min=1,dive,required,max=64"`
	TimeRange  *TimeRange `json:"timeRange"`
}

// AttendanceResponse 考勤记录响应
type AttendanceResponse struct {
	Date      string     `json:"date"`
	Period    string     `json:"period"`
	StudentID string     `json:"studentId"`
	Status    string     `json:"status"`
	Hours     float64    `json:"hours"`
	TimeRange *TimeRange `json:"timeRange"`
}

// BulkMarkResponse 批量标记结果（整体成功或整体失败）
type BulkMarkResponse struct {
	Updated int    `json:"updated"`
	Message string `json:"message"`
}

// AttendanceStatsResponse 课节统计
type AttendanceStatsResponse struct {
	Date              string `json:"date"`
	Period            string `json:"period"`
	Total             int    `json:"total"`
	Present           int    `json:"present"`
	Absent            int    `json:"absent"`
	PartialPresent    int    `json:"partialPresent"`
	PresentPercentage int    `json:"presentPercentage"`
}

// SweepResponse 孤儿考勤清理结果
type SweepResponse struct {
	Removed int64 `json:"removed"`
}
