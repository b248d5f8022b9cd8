// Blinktalk Core
// Copyright (c) 2026 The Blinktalk Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Blinktalk Core.
//
// Blinktalk Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Blinktalk Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Blinktalk Core.  If not, see <http://www.gnu.org/licenses/>.

// Package validation checks API request bodies with go-playground/validator
// and the custom tags blinktalk needs.
package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/blinktalk/blinktalk-core/pkg/morse"
	"github.com/blinktalk/blinktalk-core/pkg/transports"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

var (
	ErrMissingParams = errors.New("missing params")
	ErrInvalidParams = errors.New("invalid params")
)

type contextKey struct{}

var validateCtxKey = contextKey{}

type Validator struct {
	validate *validator.Validate
}

// Context carries runtime values some validators check against.
type Context struct {
	DriverIDs []string
}

func NewContext(driverIDs []string) *Context {
	return &Context{DriverIDs: driverIDs}
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("morse", validateMorse)
	_ = v.RegisterValidation("command", validateCommand)
	_ = v.RegisterValidation("language", validateLanguage)
	_ = v.RegisterValidationCtx("driver", validateDriver)

	return &Validator{validate: v}
}

// DefaultValidator is shared by the API handlers.
var DefaultValidator = NewValidator()

func (v *Validator) Validate(params any) error {
	return v.ValidateCtx(context.Background(), params, nil)
}

func (v *Validator) ValidateCtx(ctx context.Context, params any, vctx *Context) error {
	ctxVal := context.WithValue(ctx, validateCtxKey, vctx)
	if err := v.validate.StructCtx(ctxVal, params); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewError(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// DecodeAndValidate unmarshals a JSON body into dest and validates it.
// An empty body is ErrMissingParams and malformed JSON is ErrInvalidParams.
func DecodeAndValidate[T any](ctx context.Context, body []byte, dest *T, vctx *Context) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return ErrMissingParams
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return ErrInvalidParams
	}
	return DefaultValidator.ValidateCtx(ctx, dest, vctx)
}

// validateMorse accepts dots, dashes, spaces and slashes, including the
// display glyphs.
func validateMorse(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	return morse.IsValidMorse(morse.CleanDisplay(val))
}

func validateCommand(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	_, err := transports.ParseCommand(val)
	return err == nil
}

// validateLanguage accepts a BCP 47 tag such as "en" or "pt-BR".
func validateLanguage(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	_, err := language.Parse(val)
	return err == nil
}

func validateDriver(ctx context.Context, fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	vctx, ok := ctx.Value(validateCtxKey).(*Context)
	if !ok || vctx == nil {
		return true
	}
	for _, id := range vctx.DriverIDs {
		if strings.EqualFold(id, val) {
			return true
		}
	}
	return false
}
