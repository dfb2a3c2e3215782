package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrouter/pkg/models"
)

func TestRegistry_LookupUnknown(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Lookup(RuleType(99))
	assert.ErrorIs(t, err, ErrInvalidRuleType)
}

func TestRegistry_CoversAllKnownTypes(t *testing.T) {
	registry := newTestRegistry(t)

	for rt := range ruleTypeNames {
		_, err := registry.Lookup(rt)
		assert.NoError(t, err, rt.String())
	}
	assert.Len(t, registry.Types(), len(ruleTypeNames))
	assert.Equal(t, RuleTypeMessage, registry.Types()[0])
}

func TestRegistry_Register(t *testing.T) {
	registry := NewEmptyRegistry()
	custom := MatcherFunc(func(*models.Message, StreamRule) (bool, error) { return true, nil })

	registry.Register(RuleType(42), custom)

	m, err := registry.Lookup(RuleType(42))
	require.NoError(t, err)
	ok, err := m.Match(&models.Message{}, StreamRule{})
	require.NoError(t, err)
	assert.True(t, ok)
}
