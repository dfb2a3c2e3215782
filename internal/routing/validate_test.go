package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrouter/pkg/cel"
)

func TestValidateRule(t *testing.T) {
	evaluator, err := cel.NewEvaluator()
	require.NoError(t, err)
	patterns := NewPatternCache(time.Minute, time.Minute, evaluator)
	registry := NewRegistry(patterns)

	tests := []struct {
		name    string
		rule    StreamRule
		wantErr error
	}{
		{name: "message", rule: StreamRule{Type: RuleTypeMessage, Value: "timeout"}},
		{name: "empty host", rule: StreamRule{Type: RuleTypeHost, Value: " "}, wantErr: ErrInvalidRuleValue},
		{name: "severity", rule: StreamRule{Type: RuleTypeSeverity, Value: "3"}},
		{name: "severity not a number", rule: StreamRule{Type: RuleTypeSeverityOrHigher, Value: "high"}, wantErr: ErrInvalidRuleValue},
		{name: "severity out of range", rule: StreamRule{Type: RuleTypeSeverity, Value: "9"}, wantErr: ErrInvalidRuleValue},
		{name: "timeframe", rule: StreamRule{Type: RuleTypeTimeframe, Value: "22;6"}},
		{name: "bad timeframe", rule: StreamRule{Type: RuleTypeTimeframe, Value: "8-17"}, wantErr: ErrInvalidRuleValue},
		{name: "additional field", rule: StreamRule{Type: RuleTypeAdditionalField, Value: "_env=prod"}},
		{name: "additional field without name", rule: StreamRule{Type: RuleTypeAdditionalField, Value: "=prod"}, wantErr: ErrInvalidRuleValue},
		{name: "file and line", rule: StreamRule{Type: RuleTypeFilenameLine, Value: "main.go:12"}},
		{name: "line without file", rule: StreamRule{Type: RuleTypeFilenameLine, Value: ":12"}, wantErr: ErrInvalidRuleValue},
		{name: "regex", rule: StreamRule{Type: RuleTypeHostRegex, Value: "^web[0-9]+$"}},
		{name: "broken regex", rule: StreamRule{Type: RuleTypeFullMessage, Value: "(unclosed"}, wantErr: ErrInvalidPattern},
		{name: "expression", rule: StreamRule{Type: RuleTypeExpression, Value: `message.host == "web01"`}},
		{name: "non-bool expression", rule: StreamRule{Type: RuleTypeExpression, Value: `1 + 2`}, wantErr: ErrInvalidPattern},
		{name: "unknown type", rule: StreamRule{Type: RuleType(42), Value: "x"}, wantErr: ErrInvalidRuleType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(registry, patterns, tt.rule)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDescribeRuleTypes(t *testing.T) {
	infos := DescribeRuleTypes(NewRegistry(NewPatternCache(time.Minute, time.Minute, nil)))

	require.Len(t, infos, 11)
	assert.Equal(t, 1, infos[0].ID)
	assert.Equal(t, "MESSAGE", infos[0].Name)
	assert.Equal(t, "EXPRESSION", infos[10].Name)
	for _, info := range infos {
		assert.NotEmpty(t, info.Description, info.Name)
		assert.NotEmpty(t, info.Value, info.Name)
	}
}
