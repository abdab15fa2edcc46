package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a form field's json name to a message shown next to it
type FieldErrors map[string]string

// pincodePattern accepts an empty value so pickup orders can omit it
var pincodePattern = regexp.MustCompile(`^([0-9]{6})?$`)

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateForm checks required fields and formats. Address fields may be
// left empty when the order is picked up.
func ValidateForm(form models.CheckoutForm) FieldErrors {
	form = trimForm(form)
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return FieldErrors{"form": err.Error()}
	}

	out := FieldErrors{}
	for _, fe := range validationErrors {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "pincode":
		return "must be a 6 digit pincode"
	case "min", "max":
		return "must be between 10 and 15 characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func trimForm(form models.CheckoutForm) models.CheckoutForm {
	form.FullName = strings.TrimSpace(form.FullName)
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = strings.TrimSpace(form.Phone)
	form.Address = strings.TrimSpace(form.Address)
	form.City = strings.TrimSpace(form.City)
	form.State = strings.TrimSpace(form.State)
	form.ZipCode = strings.TrimSpace(form.ZipCode)
	form.Country = strings.TrimSpace(form.Country)
	form.DiscountCode = strings.TrimSpace(form.DiscountCode)
	return form
}
