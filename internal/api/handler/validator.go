package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"classroom-attendance/internal/attendance"
)

// 自定义校验标签
const (
	hhmmTag   = "hhmm"
	periodTag = "period"
)

// RegisterValidators 在 gin 的绑定引擎上注册自定义校验规则
//   - hhmm：HH:MM 格式的时间
//   - period：1..periods 的课节编号
func RegisterValidators(periods int) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("binding engine is not go-playground/validator")
	}

	// 错误信息使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	if err := v.RegisterValidation(hhmmTag, func(fl validator.FieldLevel) bool {
		return attendance.ValidClock(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation(periodTag, func(fl validator.FieldLevel) bool {
		return attendance.ValidPeriod(fl.Field().String(), periods)
	})
}

// bindingDetails 将绑定错误整理为 "field: rule" 列表，供响应 details 字段使用
func bindingDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
