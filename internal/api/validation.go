package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-sql/civil"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("date", validateDate)
	validate.RegisterValidation("clock", validateClock)
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := civil.ParseDate(fl.Field().String())
	return err == nil
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := parseClock(fl.Field().String())
	return err == nil
}

// parseClock accepts HH:MM and HH:MM:SS. Fractional seconds are rejected:
// slots are compared exactly and Postgres TIME keeps only microseconds.
func parseClock(s string) (civil.Time, error) {
	if t, err := civil.ParseTime(s); err == nil {
		if t.Nanosecond != 0 {
			return civil.Time{}, fmt.Errorf("invalid time %q, fractional seconds are not allowed", s)
		}
		return t, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return civil.Time{}, fmt.Errorf("invalid time %q, want HH:MM or HH:MM:SS", s)
	}
	return civil.TimeOf(t), nil
}

// validationError splits validator output into missing fields and malformed ones.
type validationError struct {
	missing []string
	invalid []string
}

func (e *validationError) Error() string {
	var parts []string
	if len(e.missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.missing, ", "))
	}
	if len(e.invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

func validateRequest(req any) *validationError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &validationError{invalid: []string{err.Error()}}
	}

	vErr := &validationError{}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			vErr.missing = append(vErr.missing, fe.Field())
		} else {
			vErr.invalid = append(vErr.invalid, fe.Field())
		}
	}
	return vErr
}
