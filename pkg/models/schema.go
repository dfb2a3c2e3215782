package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateMessage enforces the GELF minimum: a host and a short message.
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return &ValidationError{
			Field:   "message",
			Message: "message cannot be nil",
		}
	}

	if msg.Host == "" {
		return &ValidationError{
			Field:   "host",
			Message: "host is required",
		}
	}

	if msg.ShortMessage == "" {
		return &ValidationError{
			Field:   "short_message",
			Message: "short_message is required",
		}
	}

	if msg.Level != nil && (*msg.Level < 0 || *msg.Level > 7) {
		return &ValidationError{
			Field:   "level",
			Message: fmt.Sprintf("level must be between 0 and 7, got %d", *msg.Level),
		}
	}

	return nil
}
