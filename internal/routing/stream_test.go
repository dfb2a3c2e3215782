package routing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleType(t *testing.T) {
	rt, err := ParseRuleType("host_regex")
	require.NoError(t, err)
	assert.Equal(t, RuleTypeHostRegex, rt)

	rt, err = ParseRuleType("7")
	require.NoError(t, err)
	assert.Equal(t, RuleTypeSeverityOrHigher, rt)

	_, err = ParseRuleType("LEVEL")
	assert.ErrorIs(t, err, ErrInvalidRuleType)

	_, err = ParseRuleType("0")
	assert.ErrorIs(t, err, ErrInvalidRuleType)
}

func TestRuleType_JSON(t *testing.T) {
	var rule StreamRule
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","type":"ADDITIONAL_FIELD","value":"env=prod"}`), &rule))
	assert.Equal(t, RuleTypeAdditionalField, rule.Type)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","type":2,"value":"web01"}`), &rule))
	assert.Equal(t, RuleTypeHost, rule.Type)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","type":99}`), &rule))
	assert.Equal(t, RuleType(99), rule.Type)
	assert.False(t, rule.Type.Known())

	data, err := json.Marshal(StreamRule{Type: RuleTypeHost})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"HOST"`)
}

func TestNewSnapshot_CopiesAndDropsDisabled(t *testing.T) {
	rules := []StreamRule{{ID: "r1", Type: RuleTypeHost, Value: "web01"}}
	input := []Stream{
		{ID: "a", Rules: rules},
		{ID: "b", Disabled: true, Rules: rules},
	}

	snap := NewSnapshot(input, time.Now())
	require.Equal(t, 1, snap.Len())

	input[0].Title = "changed"
	rules[0].Value = "web02"

	got, ok := snap.Stream("a")
	require.True(t, ok)
	assert.Empty(t, got.Title)
	assert.Equal(t, "web01", got.Rules[0].Value)

	_, ok = snap.Stream("b")
	assert.False(t, ok)
}
