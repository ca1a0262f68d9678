package apperror

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// formatFieldName turns a json field name into words: rejectionReason
// and rejection_reason both become "Rejection Reason".
func formatFieldName(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_':
			b.WriteRune(' ')
			continue
		case i > 0 && unicode.IsUpper(r):
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English, cases.NoLower).String(b.String())
}

// MapValidationError reports the first failed binding rule as an AppError.
func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		e := errs[0]
		field := formatFieldName(e.Field())

		switch e.Tag() {
		case "required":
			return RequiredField(field)
		case "oneof":
			return OneOfField(field, strings.ReplaceAll(e.Param(), " ", ", "))
		default:
			return InvalidField(field)
		}
	}

	return ErrInvalidInput
}
