// Package apierror renders error payloads shared by every API route.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Codes returned in the "error" field of JSON error bodies.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodeConflict       = "conflict"
	CodeInternal       = "internal_error"
)

// Abort stops the chain and writes {"error": code}.
func Abort(contextGin *gin.Context, status int, code string) {
	contextGin.AbortWithStatusJSON(status, gin.H{"error": code})
}

// AbortWithMessage stops the chain and writes {"error": code, "message": message}.
func AbortWithMessage(contextGin *gin.Context, status int, code string, message string) {
	contextGin.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

// AbortFields stops the chain with a 400 carrying per-field messages.
func AbortFields(contextGin *gin.Context, fields map[string]string) {
	contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":  CodeInvalidRequest,
		"fields": fields,
	})
}

// AbortBinding converts a gin binding failure into a 400 carrying per-field messages.
func AbortBinding(contextGin *gin.Context, bindErr error) {
	var validationErrors validator.ValidationErrors
	if errors.As(bindErr, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, fieldErr := range validationErrors {
			fields[toSnakeCase(fieldErr.Field())] = describe(fieldErr)
		}
		AbortFields(contextGin, fields)
		return
	}
	AbortWithMessage(contextGin, http.StatusBadRequest, CodeInvalidRequest, "request body could not be decoded")
}

func describe(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "url":
		return "enter a valid URL"
	case "min":
		return fmt.Sprintf("ensure this field has at least %s characters", fieldErr.Param())
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fieldErr.Param())
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fieldErr.Param())
	case "gtfield":
		return fmt.Sprintf("must be after %s", toSnakeCase(fieldErr.Param()))
	default:
		return fmt.Sprintf("failed %s validation", fieldErr.Tag())
	}
}

func toSnakeCase(name string) string {
	runes := []rune(name)
	var builder strings.Builder
	for index, character := range runes {
		if character >= 'A' && character <= 'Z' {
			if index > 0 && (isLower(runes[index-1]) || (index+1 < len(runes) && isLower(runes[index+1]))) {
				builder.WriteByte('_')
			}
			builder.WriteRune(character - 'A' + 'a')
			continue
		}
		builder.WriteRune(character)
	}
	return builder.String()
}

func isLower(character rune) bool {
	return character >= 'a' && character <= 'z'
}
