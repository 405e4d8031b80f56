package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classroom-attendance/internal/dto"
	"classroom-attendance/internal/service"
	"classroom-attendance/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// ListAttendance 获取某日某课节的考勤记录
// GET /api/v1/attendance?date=2024-09-02&period=1
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	var q dto.AttendanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	records, err := h.attendanceSvc.ListByPeriod(c.Request.Context(), q.Date, q.Period)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, records)
}

// GetDayHours 获取某日各学生累计工时
// GET /api/v1/attendance/hours?date=2024-09-02
func (h *AttendanceHandler) GetDayHours(c *gin.Context) {
	var q dto.DayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	hours, err := h.attendanceSvc.DayHours(c.Request.Context(), q.Date)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, hours)
}

// GetStats 获取课节统计
// GET /api/v1/attendance/stats?date=2024-09-02&period=1
func (h *AttendanceHandler) GetStats(c *gin.Context) {
	var q dto.AttendanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	stats, err := h.attendanceSvc.Stats(c.Request.Context(), q.Date, q.Period)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, stats)
}

// MarkAttendance 标记单个学生考勤（覆盖已有记录）
// PUT /api/v1/attendance
func (h *AttendanceHandler) MarkAttendance(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBinding(c, err)
		return
	}

	record, err := h.attendanceSvc.Mark(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OKWithMessage(c, "Attendance saved!", record)
}

// BulkMarkAttendance 批量标记考勤
// POST /api/v1/attendance/bulk
func (h *AttendanceHandler) BulkMarkAttendance(c *gin.Context) {
	var req dto.BulkMarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBinding(c, err)
		return
	}

	result, err := h.attendanceSvc.BulkMark(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OKWithMessage(c, result.Message, result)
}

// SweepOrphans 手动清理孤儿考勤记录
// POST /api/v1/maintenance/sweep-orphans
func (h *AttendanceHandler) SweepOrphans(c *gin.Context) {
	removed, err := h.attendanceSvc.SweepOrphans(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, dto.SweepResponse{Removed: removed})
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttendanceInvalidDate):
		response.BadRequest(c, 21001, err.Error())
	case errors.Is(err, service.ErrAttendanceInvalidPeriod):
		response.BadRequest(c, 21002, err.Error())
	case errors.Is(err, service.ErrAttendanceInvalidStatus):
		response.BadRequest(c, 21003, err.Error())
	case errors.Is(err, service.ErrAttendanceInvalidRange):
		response.BadRequest(c, 21004, err.Error())
	case errors.Is(err, service.ErrAttendanceInvalidHours):
		response.BadRequest(c, 21005, err.Error())
	case errors.Is(err, service.ErrStudentNotFound):
		response.ErrorWithDetails(c, http.StatusNotFound, 20001, service.ErrStudentNotFound.Error(), err.Error())
	default:
		response.InternalError(c)
	}
}
