package models

import "time"

type ConfigUpdateEvent struct {
	EventType   string                 `json:"event_type"`   // "stream_updated", "stream_rule_updated"
	ServiceType string                 `json:"service_type"` // "routing"
	StreamID    string                 `json:"stream_id,omitempty"`
	RuleID      string                 `json:"rule_id,omitempty"`
	Action      string                 `json:"action"` // "create", "update", "delete", "pause", "resume"
	Timestamp   time.Time              `json:"timestamp"`
	ChangedBy   string                 `json:"changed_by,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeStreamUpdated     = "stream_updated"
	EventTypeStreamRuleUpdated = "stream_rule_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionReload = "reload"
)

const (
	ServiceTypeRouting = "routing"
)
