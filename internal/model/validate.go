package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

// result returns nil for an empty error so callers can compare against nil.
func (e *ValidationError) result() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// ValidateCar checks a car before it is sent to the API.
func ValidateCar(c *Car) error {
	var ve ValidationError
	if strings.TrimSpace(c.Brand) == "" {
		ve.add("brand", "is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		ve.add("model", "is required")
	}
	if c.Year <= 0 {
		ve.add("year", fmt.Sprintf("must be positive, got %d", c.Year))
	}
	if c.PricePerDay <= 0 {
		ve.add("pricePerDay", fmt.Sprintf("must be positive, got %g", c.PricePerDay))
	}
	return ve.result()
}

// ValidateRegistration checks a sign-up form.
func ValidateRegistration(r *Registration) error {
	var ve ValidationError
	if strings.TrimSpace(r.Name) == "" {
		ve.add("name", "is required")
	}
	email := strings.TrimSpace(r.Email)
	if email == "" {
		ve.add("email", "is required")
	} else if !strings.Contains(email, "@") {
		ve.add("email", "must be an email address")
	}
	if len(r.Password) < 6 {
		ve.add("password", "must be at least 6 characters")
	}
	return ve.result()
}

// ValidateCredentials checks a login form.
func ValidateCredentials(c *Credentials) error {
	var ve ValidationError
	if strings.TrimSpace(c.Email) == "" {
		ve.add("email", "is required")
	}
	if c.Password == "" {
		ve.add("password", "is required")
	}
	return ve.result()
}

// ValidateBooking checks a new rental against the car being booked.
func ValidateBooking(r *Rental, car *Car) error {
	var ve ValidationError
	if r.UserID <= 0 {
		ve.add("userId", "is required")
	}
	if r.StartDate.IsZero() {
		ve.add("startDate", "is required")
	}
	if r.EndDate.IsZero() {
		ve.add("endDate", "is required")
	}
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate.Time) {
		ve.add("endDate", "must not be before startDate")
	}
	if car == nil {
		ve.add("carId", "is required")
	} else if !car.Available {
		ve.add("carId", "car is not available")
	}
	return ve.result()
}

// ValidateStatusChange checks an admin status update.
func ValidateStatusChange(s RentalStatus) error {
	if s.IsValid() {
		return nil
	}
	return &ValidationError{Errors: []FieldError{{Field: "status", Message: fmt.Sprintf("invalid value %q", s)}}}
}
