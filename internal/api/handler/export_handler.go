package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"classroom-attendance/internal/dto"
	"classroom-attendance/internal/service"
	"classroom-attendance/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportAttendance 导出当日考勤
// GET /api/v1/export/attendance?date=2024-09-02
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	var q dto.DayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBinding(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportAttendance(c.Request.Context(), q.Date)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, response.ContentTypeXLSX, filename, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttendanceInvalidDate):
		response.BadRequest(c, 21001, err.Error())
	default:
		response.InternalError(c)
	}
}
