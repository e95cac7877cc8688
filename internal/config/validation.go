package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ClockLayout is the "HH:MM" layout used for send times.
const ClockLayout = "15:04"

// ParseClock splits an "HH:MM" string into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != len(ClockLayout) {
		return 0, 0, fmt.Errorf("invalid HH:MM value %q", s)
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid HH:MM value %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("hhmm", validateClock); err != nil {
		panic(fmt.Sprintf("failed to register hhmm validator: %v", err))
	}
	return v
}

func validateClock(fl validator.FieldLevel) bool {
	_, _, err := ParseClock(fl.Field().String())
	return err == nil
}
