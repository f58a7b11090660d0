package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Payment method validation
	validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		method := fl.Field().String()
		validMethods := []string{"pix", "card", "manual", ""}
		for _, m := range validMethods {
			if method == m {
				return true
			}
		}
		return false
	})

	// Complaint problem type validation
	validate.RegisterValidation("problem_type", func(fl validator.FieldLevel) bool {
		problemType := fl.Field().String()
		validTypes := []string{
			"subscription_stopped",
			"service_different_description",
			"admin_payment_outside_site",
			"problem_with_admin",
			"other",
		}
		for _, t := range validTypes {
			if problemType == t {
				return true
			}
		}
		return false
	})

	// Desired solution validation
	validate.RegisterValidation("desired_solution", func(fl validator.FieldLevel) bool {
		solution := fl.Field().String()
		validSolutions := []string{"problem_solution", "problem_solution_and_refund", "subscription_cancellation_and_refund"}
		for _, s := range validSolutions {
			if solution == s {
				return true
			}
		}
		return false
	})

	// PIX key: accepts CPF/CNPJ digits, phone, email or random key
	validate.RegisterValidation("pix_key", func(fl validator.FieldLevel) bool {
		key := strings.TrimSpace(fl.Field().String())
		return len(key) >= 5 && len(key) <= 140
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gt":
			errors[field] = "Value must be greater than " + err.Param()
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "payment_method":
			errors[field] = "Invalid payment method. Must be: pix, card, or manual"
		case "problem_type":
			errors[field] = "Invalid problem type"
		case "desired_solution":
			errors[field] = "Invalid desired solution"
		case "pix_key":
			errors[field] = "Invalid PIX key"
		default:
			errors[field] = "Invalid value"
		}
	}
	return errors
}
