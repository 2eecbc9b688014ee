package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
)

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NewValidator returns a validator with the account_email and strong_password
// rules registered and json field names used in messages.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("account_email", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
		return len(PasswordProblems(fl.Field().String())) == 0
	})
	return v
}

// ValidEmail reports whether email has a plausible address shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// PasswordProblems lists every password rule the value breaks.
func PasswordProblems(password string) []string {
	var problems []string
	if len(password) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters long", minPasswordLength))
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		problems = append(problems, "Password must contain at least one letter")
	}
	if !hasDigit {
		problems = append(problems, "Password must contain at least one number")
	}
	return problems
}

// ValidationMessages flattens validator errors into user-facing messages.
func ValidationMessages(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		if err == nil {
			return nil
		}
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessages(fe)...)
	}
	return messages
}

func fieldMessages(fe validator.FieldError) []string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return []string{fmt.Sprintf("%s is required", field)}
	case "account_email":
		return []string{"Invalid email format"}
	case "strong_password":
		value, _ := fe.Value().(string)
		if ptr, ok := fe.Value().(*string); ok && ptr != nil {
			value = *ptr
		}
		return PasswordProblems(value)
	case "eqfield":
		return []string{"Passwords do not match"}
	case "oneof":
		return []string{fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))}
	case "max":
		return []string{fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	case "min":
		return []string{fmt.Sprintf("%s must have at least %s", field, fe.Param())}
	case "len":
		return []string{fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())}
	case "numeric":
		return []string{fmt.Sprintf("%s must contain only digits", field)}
	case "url":
		return []string{fmt.Sprintf("%s must be a valid URL", field)}
	case "timezone":
		return []string{fmt.Sprintf("%s must be a valid IANA timezone", field)}
	default:
		return []string{fmt.Sprintf("%s is invalid", field)}
	}
}

// validationError builds a VALIDATION_ERROR carrying every message.
func validationError(err error) *appErrors.Error {
	messages := ValidationMessages(err)
	message := appErrors.ErrValidation.Message
	if len(messages) > 0 {
		message = messages[0]
	}
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, message), messages)
}
