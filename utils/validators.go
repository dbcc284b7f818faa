package utils

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

func InitValidator() {
	Validate = validator.New()
	Validate.RegisterValidation("datekey", ValidateDateKeyRule)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("datekey", ValidateDateKeyRule)
	}
}

func ValidateDateKeyRule(fl validator.FieldLevel) bool {
	return ValidDateKey(fl.Field().String())
}

// ValidDateKey reports whether s is a calendar day in YYYY-MM-DD form.
func ValidDateKey(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
