package config

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/matrixise/nouns-dashboard/internal/scheduler"
)

// ethAddressValidator validates Ethereum addresses
func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// durationValidator validates duration strings
func durationValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// scheduleValidator accepts clock-aligned durations and cron expressions
func scheduleValidator(fl validator.FieldLevel) bool {
	return scheduler.ValidateScheduleInterval(fl.Field().String()) == nil
}

// timezoneValidator validates IANA timezone names
func timezoneValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("eth_addr", ethAddressValidator)
	validate.RegisterValidation("duration", durationValidator)
	validate.RegisterValidation("schedule", scheduleValidator)
	validate.RegisterValidation("timezone", timezoneValidator)
	return validate
}
