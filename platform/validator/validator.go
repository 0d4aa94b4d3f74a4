// Package validator wraps go-playground request validation so handlers
// depend on one small surface.
package validator

import "github.com/go-playground/validator/v10"

// Validator validates request DTOs against their binding tags.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator. Custom rules go through RegisterValidation.
func New() *Validator {
	return &Validator{
		v: validator.New(),
	}
}

// Struct validates a struct against its validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single value against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation adds a custom validation function under a tag.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}
