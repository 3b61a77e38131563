/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package validation wraps go-playground/validator with English messages and
// the custom tags used by canvas requests.
package validation

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// docIDRegex accepts the unreserved characters of RFC 3986.
var docIDRegex = regexp.MustCompile(`^[a-zA-Z0-9\-._~]+$`)

var (
	defaultValidator = validator.New()
	defaultEn        = en.New()
	uni              = ut.New(defaultEn, defaultEn)
	trans, _         = uni.GetTranslator(defaultEn.Locale())
)

// FieldLevel is the field level interface passed to custom rules.
type FieldLevel = validator.FieldLevel

// Violation is a single failed rule.
type Violation struct {
	Tag         string
	Field       string
	Err         error
	Description string
}

// Error returns the translated description of the violation.
func (v Violation) Error() string {
	if v.Description != "" {
		return v.Description
	}
	return v.Err.Error()
}

// StructError holds every violation found in a struct.
type StructError struct {
	Violations []Violation
}

// Error joins the violations, one per line.
func (s *StructError) Error() string {
	descs := make([]string, 0, len(s.Violations))
	for _, v := range s.Violations {
		descs = append(descs, v.Error())
	}
	return strings.Join(descs, "\n")
}

// RegisterValidation registers a custom rule under tag.
func RegisterValidation(tag string, fn validator.Func) error {
	if err := defaultValidator.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("register validation %s: %w", tag, err)
	}
	return nil
}

// RegisterTranslation registers the English message of tag. {0} is replaced
// by the field name.
func RegisterTranslation(tag, msg string) error {
	if err := defaultValidator.RegisterTranslation(
		tag,
		trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, msg, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	); err != nil {
		return fmt.Errorf("register translation %s: %w", tag, err)
	}
	return nil
}

// ValidateValue validates a single value against tag.
func ValidateValue(v interface{}, tag string) error {
	err := defaultValidator.Var(v, tag)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !asValidationErrors(err, &errs) || len(errs) == 0 {
		return err
	}
	return Violation{
		Tag:         errs[0].Tag(),
		Err:         errs[0],
		Description: errs[0].Translate(trans),
	}
}

// ValidateStruct validates s using its `validate` struct tags. Field names in
// violations follow the `json` tags.
func ValidateStruct(s interface{}) error {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !asValidationErrors(err, &errs) {
		return err
	}

	structError := &StructError{}
	for _, e := range errs {
		structError.Violations = append(structError.Violations, Violation{
			Tag:         e.Tag(),
			Field:       e.Namespace(),
			Err:         e,
			Description: e.Translate(trans),
		})
	}
	return structError
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	errs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = errs
	}
	return ok
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

func mustRegister(tag, msg string, fn validator.Func) {
	if err := RegisterValidation(tag, fn); err != nil {
		fmt.Fprintf(os.Stderr, "validation %s: %v\n", tag, err)
		os.Exit(1)
	}
	if err := RegisterTranslation(tag, msg); err != nil {
		fmt.Fprintf(os.Stderr, "validation %s: %v\n", tag, err)
		os.Exit(1)
	}
}

func init() {
	defaultValidator.RegisterTagNameFunc(jsonFieldName)

	if err := entranslations.RegisterDefaultTranslations(defaultValidator, trans); err != nil {
		fmt.Fprintf(os.Stderr, "validation register default translations: %v\n", err)
		os.Exit(1)
	}

	mustRegister(
		"doc_id",
		"{0} must only contain letters, numbers, hyphen, period, underscore, and tilde",
		func(level validator.FieldLevel) bool {
			return docIDRegex.MatchString(level.Field().String())
		},
	)
}
