// Package validation checks form inputs against their binding tags with gin's validator and turns
// field errors into messages a user can act on.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		panic("validation: gin validator engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	if err := v.RegisterValidation("text", isText); err != nil {
		panic(err)
	}
}

// isText accepts valid UTF-8 without NUL characters, which Postgres refuses to store.
func isText(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// Struct validates in against its binding tags. It returns nil when every field passes.
func Struct(in any) []string {
	return Problems(binding.Validator.ValidateStruct(in))
}

// Problems turns validator field errors into messages. Other errors yield nil.
func Problems(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, message(fe))
	}
	return problems
}

// IsFieldError reports whether err came from field rules rather than from decoding the request.
func IsFieldError(err error) bool {
	var fieldErrs validator.ValidationErrors
	return errors.As(err, &fieldErrs)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "text":
		return fmt.Sprintf("%s contains characters that cannot be stored.", fe.Field())
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}
