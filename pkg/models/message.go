package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const gelfVersion = "1.1"

// Message is a decoded log message in GELF shape. Additional fields are kept
// without their leading underscore.
type Message struct {
	ID           string
	Version      string
	Host         string
	ShortMessage string
	FullMessage  string
	Timestamp    time.Time
	Level        *int
	Facility     string
	File         string
	Line         *int
	Fields       map[string]interface{}
}

// RoutedMessage is what the router publishes downstream.
type RoutedMessage struct {
	Message   *Message  `json:"message"`
	StreamIDs []string  `json:"streams"`
	RoutedAt  time.Time `json:"routed_at"`
}

func (m *Message) Field(name string) (interface{}, bool) {
	if m == nil || m.Fields == nil {
		return nil, false
	}
	name = strings.TrimPrefix(name, "_")
	v, ok := m.Fields[name]
	return v, ok
}

// FieldString renders an additional field the way it appears in GELF JSON,
// so integral numbers compare equal to their decimal text.
func (m *Message) FieldString(name string) (string, bool) {
	v, ok := m.Field(name)
	if !ok || v == nil {
		return "", false
	}
	return stringify(v), true
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Message{Fields: make(map[string]interface{})}
	for key, value := range raw {
		switch key {
		case "id":
			m.ID, _ = value.(string)
		case "version":
			m.Version, _ = value.(string)
		case "host":
			m.Host, _ = value.(string)
		case "short_message":
			m.ShortMessage, _ = value.(string)
		case "full_message":
			m.FullMessage, _ = value.(string)
		case "facility":
			m.Facility, _ = value.(string)
		case "file":
			m.File, _ = value.(string)
		case "timestamp":
			ts, err := parseTimestamp(value)
			if err != nil {
				return err
			}
			m.Timestamp = ts
		case "level":
			n, err := parseInt(key, value)
			if err != nil {
				return err
			}
			m.Level = n
		case "line":
			n, err := parseInt(key, value)
			if err != nil {
				return err
			}
			m.Line = n
		case "_id":
			// reserved by GELF
		default:
			if strings.HasPrefix(key, "_") {
				m.Fields[strings.TrimPrefix(key, "_")] = value
			}
		}
	}
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Fields)+10)
	for k, v := range m.Fields {
		out["_"+k] = v
	}

	version := m.Version
	if version == "" {
		version = gelfVersion
	}
	out["version"] = version
	out["host"] = m.Host
	out["short_message"] = m.ShortMessage
	if m.ID != "" {
		out["id"] = m.ID
	}
	if m.FullMessage != "" {
		out["full_message"] = m.FullMessage
	}
	if !m.Timestamp.IsZero() {
		out["timestamp"] = float64(m.Timestamp.UnixMilli()) / 1000
	}
	if m.Level != nil {
		out["level"] = *m.Level
	}
	if m.Facility != "" {
		out["facility"] = m.Facility
	}
	if m.File != "" {
		out["file"] = m.File
	}
	if m.Line != nil {
		out["line"] = *m.Line
	}
	return json.Marshal(out)
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case float64:
		sec, frac := math.Modf(val)
		return time.Unix(int64(sec), int64(math.Round(frac*1e3))*int64(time.Millisecond)).UTC(), nil
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return parseTimestamp(f)
		}
		ts, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", val, err)
		}
		return ts.UTC(), nil
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("invalid timestamp type %T", v)
	}
}

func parseInt(field string, v interface{}) (*int, error) {
	switch val := v.(type) {
	case float64:
		n := int(val)
		return &n, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", field, val, err)
		}
		return &n, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid %s type %T", field, v)
	}
}
