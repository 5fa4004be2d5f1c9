package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrAuth              = errors.New("authentication failed")
	ErrOracleUnavailable = errors.New("ranking oracle unavailable")
)

// ValidationError описывает ошибки входных данных по полям.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for f := range v.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.FieldErrors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add записывает ошибку поля и возвращает получателя для цепочки вызовов.
func (v *ValidationError) Add(field, message string) *ValidationError {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
	return v
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// OrNil возвращает nil, если ошибок не накоплено.
func (v *ValidationError) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

// Invalid - ошибка валидации одного поля.
func Invalid(field, message string) error {
	return (&ValidationError{}).Add(field, message)
}

// ErrorKind сводит ошибку к стабильной метке для логов и клиентов.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrOracleUnavailable):
		return "oracle_unavailable"
	}
	return "unexpected"
}
