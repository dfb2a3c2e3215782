package routing

import (
	"fmt"
	"sort"

	"streamrouter/pkg/models"
)

// Registry maps rule types to matchers. It is populated at construction and
// read-only once shared with a Router.
type Registry struct {
	matchers map[RuleType]Matcher
}

func NewEmptyRegistry() *Registry {
	return &Registry{matchers: make(map[RuleType]Matcher)}
}

// NewRegistry returns a registry with every built-in rule type. patterns may
// carry a nil evaluator, in which case EXPRESSION rules fail with
// ErrInvalidPattern.
func NewRegistry(patterns *PatternCache) *Registry {
	r := NewEmptyRegistry()
	r.Register(RuleTypeMessage, MatcherFunc(matchMessage))
	r.Register(RuleTypeHost, MatcherFunc(matchHost))
	r.Register(RuleTypeSeverity, MatcherFunc(matchSeverity))
	r.Register(RuleTypeFacility, MatcherFunc(matchFacility))
	r.Register(RuleTypeTimeframe, MatcherFunc(matchTimeframe))
	r.Register(RuleTypeAdditionalField, MatcherFunc(matchAdditionalField))
	r.Register(RuleTypeSeverityOrHigher, MatcherFunc(matchSeverityOrHigher))
	r.Register(RuleTypeHostRegex, &regexMatcher{
		patterns: patterns,
		field:    func(m *models.Message) string { return m.Host },
	})
	r.Register(RuleTypeFullMessage, &regexMatcher{
		patterns: patterns,
		field:    func(m *models.Message) string { return m.FullMessage },
	})
	r.Register(RuleTypeFilenameLine, MatcherFunc(matchFilenameLine))
	r.Register(RuleTypeExpression, &expressionMatcher{patterns: patterns})
	return r
}

// Register binds m to t, replacing any previous binding.
func (r *Registry) Register(t RuleType, m Matcher) {
	r.matchers[t] = m
}

func (r *Registry) Lookup(t RuleType) (Matcher, error) {
	m, ok := r.matchers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRuleType, t)
	}
	return m, nil
}

// Types lists the registered rule types in ascending order.
func (r *Registry) Types() []RuleType {
	types := make([]RuleType, 0, len(r.matchers))
	for t := range r.matchers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
