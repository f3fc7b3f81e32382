package paymentrequest

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	monetaryPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
	validate        = newValidator()
)

// Validate ensures the constructor input satisfies the payment request
// constraints by running go-playground/validator rules plus custom ones.
func (r requestInput) Validate() error {
	if err := validate.Struct(r); err != nil {
		return normalizeValidationError(err)
	}
	if strings.HasPrefix(r.Details.Total.Amount.Value, "-") {
		return errors.New("details.total.amount.value must not be negative")
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("monetary", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return monetaryPattern.MatchString(value)
	}); err != nil {
		panic(err)
	}

	return v
}

func normalizeValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	first := validationErrs[0]
	return fmt.Errorf("%s %s", jsonPath(first), validationMessage(first))
}

func jsonPath(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.Index(path, "."); idx >= 0 {
		path = path[idx+1:]
	}
	if path == "" {
		return fe.Field()
	}
	return path
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "iso4217":
		return "must be an ISO-4217 currency code"
	case "monetary":
		return "must be a valid decimal monetary value"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
