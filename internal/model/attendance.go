package model

// 考勤状态取值；空字符串表示未标记
const (
	AttendanceStatusPresent = "present"
	AttendanceStatusAbsent  = "absent"
	AttendanceStatusUnset   = ""
)

// AttendanceRecord 课节考勤表，对应 attendance_records
// (date, period, student_id) 唯一；Hours 与 StartTime/EndTime 仅在 present 时有值
type AttendanceRecord struct {
	AttendanceID int64   `gorm:"primaryKey;autoIncrement"                                          json:"attendance_id"`
	Date         string  `gorm:"type:varchar(10);not null;uniqueIndex:uq_attendance_slot,priority:1" json:"date"`
	Period       string  `gorm:"type:varchar(2);not null;uniqueIndex:uq_attendance_slot,priority:2"  json:"period"`
	StudentID    string  `gorm:"type:varchar(64);not null;uniqueIndex:uq_attendance_slot,priority:3;index:idx_attendance_student" json:"student_id"`
	Status       string  `gorm:"type:varchar(10);not null;default:''"                              json:"status"`
	Hours        float64 `gorm:"not null;default:0"                                                json:"hours"`
	StartTime    *string `gorm:"type:varchar(5)"                                                   json:"start_time,omitempty"`
	EndTime      *string `gorm:"type:varchar(5)"                                                   json:"end_time,omitempty"`
	BaseModel
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }
