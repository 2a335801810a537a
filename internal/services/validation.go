package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// report json names so messages read "full_name is required"
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("notblank", notBlank)
	_ = validate.RegisterValidation("store_email", matchPattern(emailPattern))
	_ = validate.RegisterValidation("phone10", matchPattern(phonePattern))
	_ = validate.RegisterValidation("pincode6", matchPattern(pincodePattern))
}

// notBlank rejects strings made only of whitespace.
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func matchPattern(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

var tagMessages = map[string]string{
	"store_email": "Invalid email format",
	"phone10":     "Phone number must be 10 digits",
	"pincode6":    "Pincode must be 6 digits",
}

// validateStruct returns a single validation error. Missing fields are
// reported before format problems, in field order.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return validationError("Invalid request")
	}

	for _, fe := range fieldErrs {
		if fe.Tag() == "required" || fe.Tag() == "notblank" {
			return validationError(fe.Field() + " is required")
		}
	}

	fe := fieldErrs[0]
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return validationError(msg)
	}
	return validationError("Invalid " + fe.Field())
}
