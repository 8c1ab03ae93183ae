package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Engine returns a validator that reports fields by their json names.
func Engine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validator adapts Engine to echo.Validator.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: Engine()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.v.Struct(i)
}

// Fields flattens validation errors into json field -> failed rule.
func Fields(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out[fe.Field()] = rule
	}
	return out
}

// ParamID parses a uuid path parameter. ok is false for malformed ids.
func ParamID(c echo.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Bind decodes the request body into req and validates it.
func Bind(c echo.Context, v *validator.Validate, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return v.Struct(req)
}

// Body is the 400 response for a Bind error.
func Body(err error) echo.Map {
	if f := Fields(err); f != nil {
		return echo.Map{"message": "validation error", "errors": f}
	}
	return echo.Map{"message": "invalid body"}
}
