package handlers

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"todo-tracker/internal/models"
)

type customValidation struct {
	tag string
	fn  validator.Func
}

var customValidations = []customValidation{
	{"notblank", ValidateNotBlank},
	{"duedate", ValidateDueDate},
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding tags used by request DTOs
// on gin's validator. Safe to call more than once; every call reports the
// outcome of the first.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin binding engine is not a validator.Validate")
			return
		}
		registerErr = registerValidations(v, customValidations)
	})
	return registerErr
}

func registerValidations(v *validator.Validate, validations []customValidation) error {
	for _, cv := range validations {
		if err := v.RegisterValidation(cv.tag, cv.fn); err != nil {
			return fmt.Errorf("register %q validation: %w", cv.tag, err)
		}
	}
	return nil
}

func ValidateNotBlank(fl validator.FieldLevel) bool {
	return models.ValidateTitle(fl.Field().String())
}

func ValidateDueDate(fl validator.FieldLevel) bool {
	_, err := models.ParseDueDate(fl.Field().String(), time.Local)
	return err == nil
}

// bindingMessage renders the first validation failure the way clients
// expect to read it.
func bindingMessage(errs validator.ValidationErrors) string {
	for _, fe := range errs {
		switch fe.Field() {
		case "Title":
			return "Title is required"
		case "DueDate":
			return "Invalid due date"
		default:
			return strings.ToLower(fe.Field()) + " is invalid"
		}
	}
	return "Invalid request"
}
