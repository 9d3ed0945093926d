package http

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"intake_server/pkg/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// NewValidator returns a validator with the custom tags used by request bodies.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidationMessages flattens validator errors into one message per field.
func ValidationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := toSnake(fe.Field())
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return msgs
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// bindAndValidate parses the JSON body into dst and validates it.
func bindAndValidate(c *fiber.Ctx, v *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := v.Struct(dst); err != nil {
		return apperr.ValidationFailed(strings.Join(ValidationMessages(err), "; "))
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput(name, "must be a positive integer")
	}
	return id, nil
}

// QueryInt64 returns pointer to int64 query param (nil if 0 or not present)
func QueryInt64(c *fiber.Ctx, key string) *int64 {
	val := c.QueryInt(key, 0)
	if val <= 0 {
		return nil
	}
	v := int64(val)
	return &v
}

// QueryBool parses a boolean query parameter, returning def when absent.
func QueryBool(c *fiber.Ctx, key string, def bool) bool {
	switch c.Query(key) {
	case "":
		return def
	case "true", "1":
		return true
	default:
		return false
	}
}
