package routing

import (
	"fmt"
	"regexp"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"streamrouter/pkg/cel"
	"streamrouter/pkg/metrics"
)

const (
	patternKindRegex      = "regex"
	patternKindExpression = "expression"
)

type compiledPattern struct {
	regex   *regexp.Regexp
	program cel.Program
	err     error
}

// PatternCache holds compiled regexes and CEL programs keyed by their source
// text. Compile failures are cached too so a broken rule is not recompiled
// for every message. Entries expire ttl after compilation.
type PatternCache struct {
	cache     *gocache.Cache
	evaluator *cel.Evaluator
}

func NewPatternCache(ttl, cleanupInterval time.Duration, evaluator *cel.Evaluator) *PatternCache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &PatternCache{
		cache:     gocache.New(ttl, cleanupInterval),
		evaluator: evaluator,
	}
}

// Regexp returns the compiled form of pattern. Errors wrap ErrInvalidPattern.
func (p *PatternCache) Regexp(pattern string) (*regexp.Regexp, error) {
	key := patternKindRegex + ":" + pattern
	if v, ok := p.cache.Get(key); ok {
		metrics.IncPatternCacheLookup(patternKindRegex, "hit")
		entry := v.(*compiledPattern)
		return entry.regex, entry.err
	}
	metrics.IncPatternCacheLookup(patternKindRegex, "miss")

	entry := &compiledPattern{}
	re, err := regexp.Compile(pattern)
	if err != nil {
		entry.err = fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	} else {
		entry.regex = re
	}
	p.cache.SetDefault(key, entry)
	return entry.regex, entry.err
}

// Program returns the compiled CEL program for expression. Errors wrap
// ErrInvalidPattern.
func (p *PatternCache) Program(expression string) (cel.Program, error) {
	if p.evaluator == nil {
		return nil, fmt.Errorf("%w: expression rules are not enabled", ErrInvalidPattern)
	}

	key := patternKindExpression + ":" + expression
	if v, ok := p.cache.Get(key); ok {
		metrics.IncPatternCacheLookup(patternKindExpression, "hit")
		entry := v.(*compiledPattern)
		return entry.program, entry.err
	}
	metrics.IncPatternCacheLookup(patternKindExpression, "miss")

	entry := &compiledPattern{}
	program, err := p.evaluator.Compile(expression)
	if err != nil {
		entry.err = fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	} else {
		entry.program = program
	}
	p.cache.SetDefault(key, entry)
	return entry.program, entry.err
}

func (p *PatternCache) Evaluator() *cel.Evaluator {
	return p.evaluator
}

func (p *PatternCache) Len() int {
	return p.cache.ItemCount()
}

func (p *PatternCache) Flush() {
	p.cache.Flush()
}
