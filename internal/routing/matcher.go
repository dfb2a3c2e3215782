package routing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"streamrouter/pkg/models"
)

// Matcher evaluates one rule against one message. A message that lacks the
// field a rule refers to does not match; that is never an error.
type Matcher interface {
	Match(msg *models.Message, rule StreamRule) (bool, error)
}

type MatcherFunc func(msg *models.Message, rule StreamRule) (bool, error)

func (f MatcherFunc) Match(msg *models.Message, rule StreamRule) (bool, error) {
	return f(msg, rule)
}

// MESSAGE: short_message contains the operand.
func matchMessage(msg *models.Message, rule StreamRule) (bool, error) {
	if msg.ShortMessage == "" {
		return false, nil
	}
	return strings.Contains(msg.ShortMessage, rule.Value), nil
}

func matchHost(msg *models.Message, rule StreamRule) (bool, error) {
	if msg.Host == "" {
		return false, nil
	}
	return msg.Host == rule.Value, nil
}

func matchFacility(msg *models.Message, rule StreamRule) (bool, error) {
	if msg.Facility == "" {
		return false, nil
	}
	return msg.Facility == rule.Value, nil
}

func matchSeverity(msg *models.Message, rule StreamRule) (bool, error) {
	want, err := ParseSeverity(rule.Value)
	if err != nil {
		return false, err
	}
	if msg.Level == nil {
		return false, nil
	}
	return *msg.Level == want, nil
}

// SEVERITY_OR_HIGHER uses the syslog scale where lower numbers are more urgent.
func matchSeverityOrHigher(msg *models.Message, rule StreamRule) (bool, error) {
	threshold, err := ParseSeverity(rule.Value)
	if err != nil {
		return false, err
	}
	if msg.Level == nil {
		return false, nil
	}
	return *msg.Level <= threshold, nil
}

// ParseSeverity reads a SEVERITY operand. Range is not checked here.
func ParseSeverity(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: severity %q is not an integer", ErrInvalidRuleValue, value)
	}
	return n, nil
}

// ADDITIONAL_FIELD operand is "name=expected". The leading underscore of the
// field name is optional.
func matchAdditionalField(msg *models.Message, rule StreamRule) (bool, error) {
	name, expected, err := ParseFieldOperand(rule.Value)
	if err != nil {
		return false, err
	}
	actual, ok := msg.FieldString(name)
	if !ok {
		return false, nil
	}
	return actual == expected, nil
}

// ParseFieldOperand splits an ADDITIONAL_FIELD operand at the first '='.
func ParseFieldOperand(value string) (name, expected string, err error) {
	name, expected, found := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	if !found || strings.TrimPrefix(name, "_") == "" {
		return "", "", fmt.Errorf("%w: additional field rule %q must look like name=value", ErrInvalidRuleValue, value)
	}
	return name, expected, nil
}

// FILENAME_LINE operand is "file" or "file:line". A suffix that is not a
// number is part of the file name.
func matchFilenameLine(msg *models.Message, rule StreamRule) (bool, error) {
	file, line, hasLine, err := ParseFileOperand(rule.Value)
	if err != nil {
		return false, err
	}
	if msg.File == "" || msg.File != file {
		return false, nil
	}
	if !hasLine {
		return true, nil
	}
	return msg.Line != nil && *msg.Line == line, nil
}

func ParseFileOperand(value string) (file string, line int, hasLine bool, err error) {
	file = value
	if idx := strings.LastIndex(value, ":"); idx >= 0 {
		if n, convErr := strconv.Atoi(value[idx+1:]); convErr == nil {
			file, line, hasLine = value[:idx], n, true
		}
	}
	if file == "" {
		return "", 0, false, fmt.Errorf("%w: file rule %q has no file name", ErrInvalidRuleValue, value)
	}
	return file, line, hasLine, nil
}

// TIMEFRAME operand is "from;to" in whole UTC hours, both ends inclusive.
// from > to wraps around midnight.
func matchTimeframe(msg *models.Message, rule StreamRule) (bool, error) {
	from, to, err := ParseTimeframe(rule.Value)
	if err != nil {
		return false, err
	}
	if msg.Timestamp.IsZero() {
		return false, nil
	}
	hour := msg.Timestamp.UTC().Hour()
	if from <= to {
		return hour >= from && hour <= to, nil
	}
	return hour >= from || hour <= to, nil
}

func ParseTimeframe(value string) (from, to int, err error) {
	left, right, found := strings.Cut(value, ";")
	if !found {
		return 0, 0, fmt.Errorf("%w: timeframe %q must look like from;to", ErrInvalidRuleValue, value)
	}
	from, errFrom := strconv.Atoi(strings.TrimSpace(left))
	to, errTo := strconv.Atoi(strings.TrimSpace(right))
	if errFrom != nil || errTo != nil || from < 0 || from > 23 || to < 0 || to > 23 {
		return 0, 0, fmt.Errorf("%w: timeframe %q needs hours between 0 and 23", ErrInvalidRuleValue, value)
	}
	return from, to, nil
}

type regexMatcher struct {
	patterns *PatternCache
	field    func(*models.Message) string
}

func (m *regexMatcher) Match(msg *models.Message, rule StreamRule) (bool, error) {
	re, err := m.patterns.Regexp(rule.Value)
	if err != nil {
		return false, err
	}
	target := m.field(msg)
	if target == "" {
		return false, nil
	}
	return re.MatchString(target), nil
}

// expressionMatcher runs a CEL program. Runtime failures, such as reading a
// field the message does not carry, count as a non-match.
type expressionMatcher struct {
	patterns *PatternCache
}

func (m *expressionMatcher) Match(msg *models.Message, rule StreamRule) (bool, error) {
	program, err := m.patterns.Program(rule.Value)
	if err != nil {
		return false, err
	}
	ok, err := m.patterns.Evaluator().Evaluate(context.Background(), program, msg)
	if err != nil {
		return false, nil
	}
	return ok, nil
}
