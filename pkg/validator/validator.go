// Package validator registers the request tags the API binds with and turns
// binding failures into field-level messages.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// FieldError is one failed rule on a request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var messages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"slotdate": "must be a date in YYYY-MM-DD format",
	"slottime": "must be a time in HH:MM format",
	"money2dp": "must have at most two decimal places",
	"oneof":    "must be one of: %s",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gt":       "must be greater than %s",
	"gte":      "must be at least %s",
	"lte":      "must be at most %s",
}

// Register adds the custom tags to v and makes v report JSON field names.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	for tag, fn := range map[string]validator.Func{
		"slotdate": layoutValidator(dateLayout),
		"slottime": layoutValidator(timeLayout),
		"money2dp": twoDecimalPlaces,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// RegisterGin registers the custom tags on gin's binding engine.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return Register(v)
}

func layoutValidator(layout string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != len(layout) {
			return false
		}
		_, err := time.Parse(layout, s)
		return err == nil
	}
}

func twoDecimalPlaces(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		scaled := fl.Field().Float() * 100
		return math.Abs(scaled-math.Round(scaled)) <= 1e-6
	default:
		return false
	}
}

// Translate explains a binding error. Errors that are not rule failures,
// such as malformed JSON, come back as a single entry without a field.
func Translate(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{Field: fieldPath(fe), Message: message(fe)})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []FieldError{{Field: typeErr.Field, Message: "has the wrong type"}}
	}
	return []FieldError{{Message: "malformed request body"}}
}

// fieldPath drops the struct name from the namespace, e.g.
// "CreateBookingRequest.slots[0].date" becomes "slots[0].date".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, fe.Param())
	}
	return tmpl
}
