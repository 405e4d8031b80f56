package errors

import "errors"

// ErrCapacityExceeded 写入后花名册人数将超过教室容量
var ErrCapacityExceeded = errors.New("花名册人数超出教室容量")

// ErrStudentMissing 考勤记录引用的学生不存在
var ErrStudentMissing = errors.New("学生不存在")
