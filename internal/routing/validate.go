package routing

import (
	"fmt"
	"strings"
)

// RuleTypeInfo describes a rule type for API clients.
type RuleTypeInfo struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Value       string   `json:"value_format"`
	Examples    []string `json:"examples,omitempty"`
}

var ruleTypeDocs = map[RuleType]RuleTypeInfo{
	RuleTypeMessage:          {Description: "short_message contains the value", Value: "text", Examples: []string{"connection refused"}},
	RuleTypeHost:             {Description: "host equals the value", Value: "text", Examples: []string{"web01"}},
	RuleTypeSeverity:         {Description: "level equals the value", Value: "integer 0-7", Examples: []string{"3"}},
	RuleTypeFacility:         {Description: "facility equals the value", Value: "text", Examples: []string{"nginx"}},
	RuleTypeTimeframe:        {Description: "timestamp hour (UTC) falls inside the range, wrapping at midnight", Value: "from;to", Examples: []string{"8;17", "22;6"}},
	RuleTypeAdditionalField:  {Description: "additional field equals the expected text", Value: "name=value", Examples: []string{"env=prod", "_status=502"}},
	RuleTypeSeverityOrHigher: {Description: "level is at least as severe as the value", Value: "integer 0-7", Examples: []string{"4"}},
	RuleTypeHostRegex:        {Description: "host matches the regular expression", Value: "regex", Examples: []string{"^db-[0-9]+$"}},
	RuleTypeFullMessage:      {Description: "full_message matches the regular expression", Value: "regex", Examples: []string{"(?i)exception"}},
	RuleTypeFilenameLine:     {Description: "file equals the value, and line when given", Value: "file or file:line", Examples: []string{"server.go", "server.go:42"}},
	RuleTypeExpression:       {Description: "CEL expression over message and fields evaluates to true", Value: "CEL", Examples: []string{`message.host == "web01"`}},
}

// DescribeRuleTypes lists the types registered in registry.
func DescribeRuleTypes(registry *Registry) []RuleTypeInfo {
	types := registry.Types()
	out := make([]RuleTypeInfo, 0, len(types))
	for _, t := range types {
		info := ruleTypeDocs[t]
		info.ID = int(t)
		info.Name = t.String()
		out = append(out, info)
	}
	return out
}

// ValidateRule checks that rule can be evaluated: its type is registered and
// its value parses or compiles for that type.
func ValidateRule(registry *Registry, patterns *PatternCache, rule StreamRule) error {
	if _, err := registry.Lookup(rule.Type); err != nil {
		return err
	}

	switch rule.Type {
	case RuleTypeMessage, RuleTypeHost, RuleTypeFacility:
		if strings.TrimSpace(rule.Value) == "" {
			return fmt.Errorf("%w: %s rule needs a value", ErrInvalidRuleValue, rule.Type)
		}
	case RuleTypeSeverity, RuleTypeSeverityOrHigher:
		level, err := ParseSeverity(rule.Value)
		if err != nil {
			return err
		}
		if level < 0 || level > 7 {
			return fmt.Errorf("%w: severity %d is outside 0-7", ErrInvalidRuleValue, level)
		}
	case RuleTypeTimeframe:
		_, _, err := ParseTimeframe(rule.Value)
		return err
	case RuleTypeAdditionalField:
		_, _, err := ParseFieldOperand(rule.Value)
		return err
	case RuleTypeFilenameLine:
		_, _, _, err := ParseFileOperand(rule.Value)
		return err
	case RuleTypeHostRegex, RuleTypeFullMessage:
		_, err := patterns.Regexp(rule.Value)
		return err
	case RuleTypeExpression:
		_, err := patterns.Program(rule.Value)
		return err
	}
	return nil
}
