package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
)

// ValidationError lists every problem found in a request body.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error {
	return common.ErrValidation
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return len(passwordPolicyViolations(fl.Field().String())) == 0
	})
	return v
}

// passwordPolicyViolations checks the password policy: 8 to 20 characters
// with at least one letter, one uppercase letter and one digit. Multi-byte
// characters can push a 20 character password past bcrypt's byte limit, so
// the encoded length is checked too.
func passwordPolicyViolations(pw string) []string {
	var out []string

	n := utf8.RuneCountInString(pw)
	if n < 8 {
		out = append(out, "password must be at least 8 characters long")
	}
	if n > 20 {
		out = append(out, "password must not exceed 20 characters")
	}
	if len(pw) > cryptox.MaxPasswordBytes {
		out = append(out, fmt.Sprintf("password must not exceed %d bytes", cryptox.MaxPasswordBytes))
	}

	var letter, upper, digit bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			letter, upper = true, true
		case r >= 'a' && r <= 'z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !letter {
		out = append(out, "password must contain at least one letter")
	}
	if !upper {
		out = append(out, "password must contain at least one uppercase letter")
	}
	if !digit {
		out = append(out, "password must contain at least one number")
	}
	return out
}

// validateStruct runs the validator and converts its findings into a
// ValidationError.
func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe)...)
	}
	return &ValidationError{Messages: msgs}
}

func describe(fe validator.FieldError) []string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return []string{name + " should not be empty"}
	case "email":
		return []string{name + " must be an email"}
	case "min":
		return []string{fmt.Sprintf("%s must be longer than or equal to %s characters", name, fe.Param())}
	case "max":
		return []string{fmt.Sprintf("%s must be shorter than or equal to %s characters", name, fe.Param())}
	case "password_policy":
		pw, _ := fe.Value().(string)
		return passwordPolicyViolations(pw)
	default:
		return []string{fmt.Sprintf("%s is invalid", name)}
	}
}
