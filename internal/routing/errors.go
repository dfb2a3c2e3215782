package routing

import "errors"

var (
	// ErrInvalidRuleType is returned for a rule type no matcher is registered for.
	ErrInvalidRuleType = errors.New("invalid stream rule type")

	// ErrInvalidPattern is returned when a regex or expression operand does not compile.
	ErrInvalidPattern = errors.New("invalid stream rule pattern")

	// ErrInvalidRuleValue is returned when an operand cannot be parsed for its rule type.
	ErrInvalidRuleValue = errors.New("invalid stream rule value")

	// ErrNoSnapshot is returned when no enabled-stream snapshot has ever been loaded.
	ErrNoSnapshot = errors.New("no stream snapshot available")
)
