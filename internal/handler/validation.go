package handler

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// formatValidationError converts the first validator failure into a stable,
// human-readable message keyed by the request field's JSON-style name.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request"
	}
	for _, fe := range ve {
		field := snakeCase(fe.Field())
		switch fe.Tag() {
		case "required":
			return "invalid request: " + field + " is required"
		case "notblank":
			return "invalid request: " + field + " cannot be whitespace only"
		case "max":
			return "invalid request: " + field + " exceeds maximum length"
		case "min":
			return "invalid request: " + field + " is too short"
		case "email":
			return "invalid request: " + field + " must be a valid email"
		case "url":
			return "invalid request: " + field + " must be a valid URL"
		case "oneof":
			return "invalid request: " + field + " must be one of: " + fe.Param()
		case "gt", "gte", "lt", "lte":
			return "invalid request: " + field + " is out of range"
		default:
			return "invalid request: " + field + " is invalid"
		}
	}
	return "invalid request"
}

// snakeCase converts an exported struct field name to its JSON-ish form,
// e.g. "LeaderEmail" -> "leader_email", "UserID" -> "user_id".
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Start a new word unless this upper continues an acronym run.
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
