package routing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RuleType discriminates how a StreamRule operand is interpreted. Values are
// stored numerically.
type RuleType int

const (
	RuleTypeMessage          RuleType = 1
	RuleTypeHost             RuleType = 2
	RuleTypeSeverity         RuleType = 3
	RuleTypeFacility         RuleType = 4
	RuleTypeTimeframe        RuleType = 5
	RuleTypeAdditionalField  RuleType = 6
	RuleTypeSeverityOrHigher RuleType = 7
	RuleTypeHostRegex        RuleType = 8
	RuleTypeFullMessage      RuleType = 9
	RuleTypeFilenameLine     RuleType = 10
	RuleTypeExpression       RuleType = 11
)

var ruleTypeNames = map[RuleType]string{
	RuleTypeMessage:          "MESSAGE",
	RuleTypeHost:             "HOST",
	RuleTypeSeverity:         "SEVERITY",
	RuleTypeFacility:         "FACILITY",
	RuleTypeTimeframe:        "TIMEFRAME",
	RuleTypeAdditionalField:  "ADDITIONAL_FIELD",
	RuleTypeSeverityOrHigher: "SEVERITY_OR_HIGHER",
	RuleTypeHostRegex:        "HOST_REGEX",
	RuleTypeFullMessage:      "FULL_MESSAGE",
	RuleTypeFilenameLine:     "FILENAME_LINE",
	RuleTypeExpression:       "EXPRESSION",
}

func (t RuleType) String() string {
	if name, ok := ruleTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RuleType(%d)", int(t))
}

// Known reports whether t is one of the declared rule types.
func (t RuleType) Known() bool {
	_, ok := ruleTypeNames[t]
	return ok
}

// ParseRuleType accepts a type name (case-insensitive) or its numeric id.
func ParseRuleType(s string) (RuleType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		t := RuleType(n)
		if !t.Known() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidRuleType, n)
		}
		return t, nil
	}

	upper := strings.ToUpper(s)
	for t, name := range ruleTypeNames {
		if name == upper {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRuleType, s)
}

func (t RuleType) MarshalJSON() ([]byte, error) {
	if !t.Known() {
		return json.Marshal(int(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts both the name and the numeric form. Unknown numeric
// values are kept so the router can report them at evaluation time.
func (t *RuleType) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*t = RuleType(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRuleType, string(data))
	}
	parsed, err := ParseRuleType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// StreamRule is a single predicate of a stream. A stream matches a message
// only when all of its rules do.
type StreamRule struct {
	ID          string   `json:"id" bson:"_id"`
	StreamID    string   `json:"stream_id" bson:"stream_id"`
	Type        RuleType `json:"type" bson:"type"`
	Value       string   `json:"value" bson:"value"`
	Inverted    bool     `json:"inverted" bson:"inverted"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Position    int      `json:"position" bson:"position"`
}

// Stream is a named routing destination. Rules are stored separately and
// resolved by the storage layer before a stream enters a snapshot.
type Stream struct {
	ID          string       `json:"id" bson:"_id"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Disabled    bool         `json:"disabled" bson:"disabled"`
	Rules       []StreamRule `json:"rules" bson:"-"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
}

// Clone returns a copy of s that shares no rule storage with it.
func (s Stream) Clone() Stream {
	s.Rules = append([]StreamRule(nil), s.Rules...)
	return s
}

// Snapshot is an immutable set of enabled streams. Callers must not modify
// the streams or their rules.
type Snapshot struct {
	Streams  []Stream
	LoadedAt time.Time

	generation uint64
}

// NewSnapshot copies streams, dropping disabled ones, so later changes to the
// input never leak into a published snapshot.
func NewSnapshot(streams []Stream, loadedAt time.Time) *Snapshot {
	return newSnapshot(streams, loadedAt, 0)
}

func newSnapshot(streams []Stream, loadedAt time.Time, generation uint64) *Snapshot {
	out := make([]Stream, 0, len(streams))
	for _, s := range streams {
		if s.Disabled {
			continue
		}
		out = append(out, s.Clone())
	}
	return &Snapshot{
		Streams:    out,
		LoadedAt:   loadedAt,
		generation: generation,
	}
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Streams)
}

// Stream returns the enabled stream with the given id.
func (s *Snapshot) Stream(id string) (Stream, bool) {
	if s == nil {
		return Stream{}, false
	}
	for _, st := range s.Streams {
		if st.ID == id {
			return st, true
		}
	}
	return Stream{}, false
}
