package model

// Student 学生花名册表，对应 students
// StudentID 由业务层生成（默认为创建时刻毫秒时间戳字符串），学号全局唯一
type Student struct {
	StudentID  string `gorm:"type:varchar(64);primaryKey"                                 json:"student_id"`
	Name       string `gorm:"type:varchar(100);not null"                                  json:"name"`
	RollNumber string `gorm:"type:varchar(50);not null;uniqueIndex:uq_students_roll_number" json:"roll_number"`
	Email      string `gorm:"type:varchar(255);not null;default:''"                       json:"email"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
