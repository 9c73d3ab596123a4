// Package validation wraps go-playground/validator for inbound payloads,
// both upstream responses and dashboard requests.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Error lists every failed constraint of a payload.
type Error struct {
	Fields []string
	msgs   []string
}

func (e *Error) Error() string {
	return strings.Join(e.msgs, ", ")
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fe.Namespace())
		out.msgs = append(out.msgs, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("field %s is a required field", field)
	case "gte":
		return fmt.Sprintf("field %s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("field %s must be greater than %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("field %s must be at most %s long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("field %s must be one of [%s]", field, fe.Param())
	case "len":
		return fmt.Sprintf("field %s must have length %s", field, fe.Param())
	default:
		return fmt.Sprintf("field %s is not valid", field)
	}
}
