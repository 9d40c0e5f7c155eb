package dto

import (
	"time"

	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators installs domain-format validators on gin's binding
// engine. Call once at startup before any request is served.
func RegisterCustomValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("academic_year", validateAcademicYear)
	_ = v.RegisterValidation("month_key", validateMonthKey)
}

// academic_year accepts codes like "2024-25" or "2024-2025". ParseYearCode
// falls back silently on garbage, so the fallback flag is the signal here.
func validateAcademicYear(fl validator.FieldLevel) bool {
	_, fallback := calendar.ParseYearCode(fl.Field().String(), time.Now())
	return !fallback
}

func validateMonthKey(fl validator.FieldLevel) bool {
	return calendar.MonthKey(fl.Field().String()).IsValid()
}
