package management

import (
	"errors"
	"fmt"
	"strings"

	"streamrouter/internal/routing"
	pkgerrors "streamrouter/pkg/errors"
)

// Validator rejects rules the router would not be able to evaluate.
type Validator struct {
	registry *routing.Registry
	patterns *routing.PatternCache
}

func NewValidator(registry *routing.Registry, patterns *routing.PatternCache) *Validator {
	return &Validator{registry: registry, patterns: patterns}
}

func (v *Validator) ValidateRule(rule routing.StreamRule) error {
	if err := routing.ValidateRule(v.registry, v.patterns, rule); err != nil {
		return pkgerrors.ErrInvalidStreamRule.WithCause(err).WithDetails(map[string]interface{}{
			"type":    rule.Type.String(),
			"value":   rule.Value,
			"message": err.Error(),
		})
	}
	return nil
}

func (v *Validator) ValidateCreateStream(req CreateStreamRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return pkgerrors.ErrValidation.WithDetail("message", "title is required")
	}
	for i, r := range req.Rules {
		if err := v.ValidateRule(routing.StreamRule{Type: r.Type, Value: r.Value}); err != nil {
			return withRuleIndex(err, i)
		}
	}
	return nil
}

func (v *Validator) ValidateUpdateStream(req UpdateStreamRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return pkgerrors.ErrValidation.WithDetail("message", "title cannot be empty")
	}
	return nil
}

func withRuleIndex(err error, index int) error {
	var appErr *pkgerrors.Error
	if errors.As(err, &appErr) {
		return appErr.WithDetail("rule_index", index)
	}
	return fmt.Errorf("rule %d: %w", index, err)
}
