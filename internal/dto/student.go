package dto

// ── 学生模块 DTO ──

// CreateStudentRequest 创建学生请求（name / rollNumber 的必填校验由 Service 完成，以便批量接口复用同一规则）
type CreateStudentRequest struct {
	ID         string `json:"id"         binding:"omitempty,max=64"`
	Name       string `json:"name"       binding:"omitempty,max=100"`
	RollNumber string `json:"rollNumber" binding:"omitempty,max=50"`
	Email      string `json:"email"      binding:"omitempty,max=255"`
}

// UpdateStudentRequest 局部更新请求：nil 表示未提供，空字符串表示显式清空
type UpdateStudentRequest struct {
	Name       *string `json:"name"       binding:"omitempty,max=100"`
	RollNumber *string `json:"rollNumber" binding:"omitempty,max=50"`
	Email      *string `json:"email"      binding:"omitempty,max=255"`
}

// StudentResponse 学生信息响应
type StudentResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Email      string `json:"email"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// DeleteStudentResponse 删除学生响应
type DeleteStudentResponse struct {
	Message           string `json:"message"`
	AttendanceRemoved int64  `json:"attendanceRemoved"`
}

// ImportStudentsResponse CSV 导入结果
type ImportStudentsResponse struct {
	Imported int               `json:"imported"`
	Message  string            `json:"message"`
	Students []StudentResponse `json:"students"`
}
