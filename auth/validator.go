package auth

import (
	stderrors "errors"
	"fmt"
	"unicode"

	"localchat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Username string `validate:"required,alphanum,min=3,max=32"`
	Password string `validate:"required,min=12,max=72"`
}

// ValidateRegister checks the registration rules. Username failures come
// back under ErrInvalidUsername and password failures under
// ErrInvalidPassword, so callers can tell the user which field to fix.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Field() == "Username" {
					return fmt.Errorf("%w: failed on %q", errors.ErrInvalidUsername, fe.Tag())
				}
			}
			return fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
		}
		return err
	}

	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
