package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate runs the struct tags on inputs. Field names in errors follow the JSON names.
var validate = newValidator()

type enumeration interface {
	Valid() bool
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		e, ok := fl.Field().Interface().(enumeration)
		return ok && e.Valid()
	})
	return v
}

// fieldErrors converts validator output into a ValidationError
func fieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range errs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		ve.Add(field, fieldMessage(fe.Field(), fe))
	}
	return ve.OrNil()
}

func fieldMessage(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return name + " is required"
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", name, fe.Param())
	case "enum":
		return fmt.Sprintf("unknown %s %q", name, fmt.Sprint(fe.Value()))
	}
	return fmt.Sprintf("%s failed %s", name, fe.Tag())
}
