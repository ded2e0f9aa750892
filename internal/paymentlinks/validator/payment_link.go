package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"payrouter/pkg/logger"
	"payrouter/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors into the map carried by a VALIDATION_ERROR response.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type PaymentLinkValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewPaymentLinkValidator(log *logger.Logger) *PaymentLinkValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match the request fields
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	log.Debug("Payment link validator initialized")

	return &PaymentLinkValidator{
		validate: v,
		logger:   log,
	}
}

func (v *PaymentLinkValidator) ValidateCreate(req *model.PaymentLinkCreate) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *PaymentLinkValidator) ValidateList(c *model.PaymentLinkListConstraints) error {
	if err := v.validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	var errs ValidationErrors
	if c.CreatedLT != nil && c.CreatedGT != nil && !c.CreatedLT.After(*c.CreatedGT) {
		errs = append(errs, ValidationError{Field: "created.lt", Message: "created.lt must be after created.gt"})
	}
	if c.CreatedLTE != nil && c.CreatedGTE != nil && c.CreatedLTE.Before(*c.CreatedGTE) {
		errs = append(errs, ValidationError{Field: "created.lte", Message: "created.lte must not be before created.gte"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *PaymentLinkValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "iso4217":
			message = fmt.Sprintf("%s must be an ISO 4217 currency code", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
