package handler

import "classroom-attendance/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Student    *StudentHandler
	Attendance *AttendanceHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Student:    NewStudentHandler(svc.Student, svc.Roster),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Export:     NewExportHandler(svc.Export),
	}
}
