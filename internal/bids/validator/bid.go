package validator

import (
	"errors"
	"fmt"
	"strings"

	"bidhouse/pkg/logger"
	"bidhouse/pkg/model"

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

type BidValidator struct {
	validate     *validator.Validate
	maxBidAmount int64
	logger       *logger.Logger
}

func NewBidValidator(maxBidAmount int64, log *logger.Logger) *BidValidator {
	v := validator.New()

	log.Info("Bid validator initialized successfully", "max_bid_amount_minor", maxBidAmount)

	return &BidValidator{
		validate:     v,
		maxBidAmount: maxBidAmount,
		logger:       log,
	}
}

func (v *BidValidator) Validate(event *model.BidEvent) error {
	if err := v.validate.Struct(event); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if event.AmountMinor > v.maxBidAmount {
		return ValidationErrors{
			ValidationError{
				Field:   "AmountMinor",
				Message: fmt.Sprintf("amount_minor must not exceed %d", v.maxBidAmount),
			},
		}
	}

	return nil
}

func (v *BidValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
