// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

// Package validation wraps go-playground/validator with the domain's
// custom tags. The singleton instance caches struct metadata, so
// request structs validate cheaply on every call.
//
// Custom tags:
//   - media_type: "" (any), "movie" or "show"
//   - list_type:  "chat", "mood", "theme" or "fusion"
//   - winner:     a pairwise outcome ("a", "b", "skip", "both", "neither")
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/curatus/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Registration only fails for empty tags or nil funcs.
		_ = validate.RegisterValidation("media_type", func(fl validator.FieldLevel) bool {
			switch models.MediaType(fl.Field().String()) {
			case "", models.MediaTypeMovie, models.MediaTypeShow:
				return true
			default:
				return false
			}
		})
		_ = validate.RegisterValidation("list_type", func(fl validator.FieldLevel) bool {
			switch models.ListType(fl.Field().String()) {
			case "", models.ListTypeChat, models.ListTypeMood, models.ListTypeTheme, models.ListTypeFusion:
				return true
			default:
				return false
			}
		})
		_ = validate.RegisterValidation("winner", func(fl validator.FieldLevel) bool {
			return models.Winner(fl.Field().String()).Valid()
		})
	})
	return validate
}

// ValidateStruct validates s and returns a caller-facing error message
// listing every failed field, or nil.
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		messages[i] = translate(fe)
	}
	return errors.New(strings.Join(messages, "; "))
}

func translate(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "media_type":
		return field + " must be movie or show"
	case "list_type":
		return field + " must be chat, mood, theme or fusion"
	case "winner":
		return field + " must be a, b, skip, both or neither"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
