package models

import "github.com/go-playground/validator/v10"

var structValidator = validator.New()

// ValidateStruct runs struct-tag validation (the `validate:"..."` tags on
// Document and SearchQuery) against v, used at the HTTP boundary before a
// request reaches the search pipeline.
func ValidateStruct(v any) error {
	return structValidator.Struct(v)
}
