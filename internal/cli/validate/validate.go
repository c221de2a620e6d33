// Package validate checks user input before it is sent to the backend.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/seap-dev/seap/internal/cli/client"
)

const (
	MinPasswordLength = 6
	OTPLength         = 6
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Passcodes are exactly OTPLength ASCII digits
	v.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if len(value) != OTPLength {
			return false
		}
		for _, char := range value {
			if char < '0' || char > '9' {
				return false
			}
		}
		return true
	})

	return v
}

// SignIn is the input of login
type SignIn struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUp is the input of register
type SignUp struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Passcode is the input of OTP verification
type Passcode struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"otp" validate:"required,otp"`
}

// Rejection is the input of an admin rejecting a campaign
type Rejection struct {
	Comment string `json:"comment" validate:"required"`
}

// FieldError is one failed rule
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors collects every failed rule of one input
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Message
	}
	return strings.Join(parts, "; ")
}

// Struct validates any tagged struct and converts failures to FieldErrors
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

// Email validates a bare email address
func Email(email string) error {
	return Struct(struct {
		Email string `json:"email" validate:"required,email"`
	}{strings.TrimSpace(email)})
}

// Password validates a new password
func Password(password string) error {
	return Struct(struct {
		Password string `json:"password" validate:"required,min=6"`
	}{password})
}

// Login validates login input
func Login(email, password string) error {
	return Struct(SignIn{Email: strings.TrimSpace(email), Password: password})
}

// Register validates registration input
func Register(email, password string) error {
	return Struct(SignUp{Email: strings.TrimSpace(email), Password: password})
}

// OTP validates a passcode submission
func OTP(email, code string) error {
	return Struct(Passcode{Email: strings.TrimSpace(email), Code: strings.TrimSpace(code)})
}

// Code validates a passcode on its own, as typed into a prompt
func Code(code string) error {
	if err := validate.Var(strings.TrimSpace(code), "required,otp"); err != nil {
		return FieldErrors{{Field: "otp", Message: fmt.Sprintf("Passcode must be exactly %d digits", OTPLength)}}
	}
	return nil
}

// Campaign validates a create or update request
func Campaign(req *client.CampaignRequest) error {
	return Struct(req)
}

// Share validates a share invitation
func Share(req *client.ShareRequest) error {
	return Struct(req)
}

// RejectComment validates the reason given for a rejection
func RejectComment(comment string) error {
	return Struct(Rejection{Comment: strings.TrimSpace(comment)})
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please enter a valid email address"
	case "min":
		if fe.Field() == "password" {
			return fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
		}
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "otp":
		return fmt.Sprintf("Passcode must be exactly %d digits", OTPLength)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
