package webserver

import (
	"github.com/go-playground/validator/v10"
)

// payloadValidator adapts go-playground/validator to echo's Validator.
type payloadValidator struct {
	validate *validator.Validate
}

func (v *payloadValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
