package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classroom-attendance/internal/dto"
	"classroom-attendance/internal/service"
	"classroom-attendance/pkg/response"
)

// StudentHandler 学生与花名册模块 HTTP 处理器
type StudentHandler struct {
	studentSvc service.StudentService
	rosterSvc  service.RosterService
}

// NewStudentHandler 创建 StudentHandler
func NewStudentHandler(studentSvc service.StudentService, rosterSvc service.RosterService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc, rosterSvc: rosterSvc}
}

// ListStudents 获取全部学生（按创建顺序）
// GET /api/v1/students
func (h *StudentHandler) ListStudents(c *gin.Context) {
	students, err := h.studentSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, students)
}

// CreateStudent 创建学生
// POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBinding(c, err)
		return
	}

	student, err := h.studentSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.Created(c, student)
}

// UpdateStudent 局部更新学生
// PUT /api/v1/students/:id
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "Student id is required")
	if !ok {
		return
	}

	var req dto.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBinding(c, err)
		return
	}

	student, err := h.studentSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OK(c, student)
}

// DeleteStudent 删除学生及其全部考勤
// DELETE /api/v1/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "Student id is required")
	if !ok {
		return
	}

	result, err := h.studentSvc.Delete(c.Request.Context(), id)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.OKWithMessage(c, result.Message, result)
}

// BulkCreateStudents 批量创建学生（整批成功或整批失败）
// POST /api/v1/students/bulk
func (h *StudentHandler) BulkCreateStudents(c *gin.Context) {
	var reqs []dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		badBinding(c, err)
		return
	}

	students, err := h.studentSvc.BulkCreate(c.Request.Context(), reqs)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.Created(c, students)
}

// ImportStudents 从 CSV 导入花名册
// POST /api/v1/students/import （multipart/form-data, 字段 file）
func (h *StudentHandler) ImportStudents(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			response.BadRequest(c, 10001, "CSV file is required")
			return
		}
		badBinding(c, err)
		return
	}
	file, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 22001, service.ErrImportUnreadable.Error())
		return
	}
	defer file.Close()

	result, err := h.rosterSvc.ImportCSV(c.Request.Context(), file)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}

	response.CreatedWithMessage(c, result.Message, result)
}

// ExportStudents 导出花名册 CSV
// GET /api/v1/students/export
func (h *StudentHandler) ExportStudents(c *gin.Context) {
	buf, err := h.rosterSvc.ExportCSV(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.Attachment(c, response.ContentTypeCSV, "students.csv", buf.Bytes())
}

// DownloadTemplate 下载花名册 CSV 模板
// GET /api/v1/students/template
func (h *StudentHandler) DownloadTemplate(c *gin.Context) {
	buf, err := h.rosterSvc.TemplateCSV()
	if err != nil {
		response.InternalError(c)
		return
	}
	response.Attachment(c, response.ContentTypeCSV, "students_template.csv", buf.Bytes())
}

// handleStudentError 业务错误 → HTTP 响应；message 为客户端直接展示的文案
func (h *StudentHandler) handleStudentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 20001, service.ErrStudentNotFound.Error())
	case errors.Is(err, service.ErrStudentFieldsRequired):
		response.BadRequest(c, 20002, err.Error())
	case errors.Is(err, service.ErrStudentBulkInvalid):
		response.BadRequest(c, 20003, err.Error())
	case errors.Is(err, service.ErrStudentBulkEmpty):
		response.BadRequest(c, 20004, err.Error())
	case errors.Is(err, service.ErrRosterFull):
		response.BadRequest(c, 20005, err.Error())
	case errors.Is(err, service.ErrStudentRollNumberTaken):
		response.Conflict(c, 20006, err.Error())
	case errors.Is(err, service.ErrStudentIDTaken):
		response.Conflict(c, 20007, err.Error())
	case errors.Is(err, service.ErrStudentConflict):
		response.Conflict(c, 20008, err.Error())
	case errors.Is(err, service.ErrImportUnreadable):
		response.BadRequest(c, 22001, err.Error())
	case errors.Is(err, service.ErrImportNoValidRows):
		response.BadRequest(c, 22002, err.Error())
	case errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 22003, err.Error())
	default:
		response.InternalError(c)
	}
}
