package services

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxPasswordBytes = 72

var validate = newValidator()

// newValidator reports fields by their json names and registers the aliases used by the input structs.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Usernames travel in URL paths and in the user part of Basic credentials.
	v.RegisterAlias("username", "max=80,excludesall=/:")
	// bcrypt rejects inputs longer than 72 bytes; max counts runes.
	if err := v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	}); err != nil {
		panic(err)
	}
	v.RegisterAlias("pwd", "bcrypt_len")
	return v
}

func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = formatFieldError(fe)
	}
	return &ValidationError{Fields: fields}
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "bcrypt_len":
		return "must be at most " + strconv.Itoa(maxPasswordBytes) + " bytes"
	case "excludesall":
		return "must not contain any of " + fe.Param()
	default:
		return "is invalid"
	}
}
