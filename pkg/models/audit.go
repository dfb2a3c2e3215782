package models

import "time"

// AuditEntry records one change made through the management API.
type AuditEntry struct {
	ID        string                 `json:"id" bson:"_id"`
	StreamID  string                 `json:"stream_id" bson:"stream_id"`
	RuleID    string                 `json:"rule_id,omitempty" bson:"rule_id,omitempty"`
	Action    string                 `json:"action" bson:"action"`
	OldValue  map[string]interface{} `json:"old_value,omitempty" bson:"old_value,omitempty"`
	NewValue  map[string]interface{} `json:"new_value,omitempty" bson:"new_value,omitempty"`
	ChangedBy string                 `json:"changed_by" bson:"changed_by"`
	Timestamp time.Time              `json:"timestamp" bson:"timestamp"`
}
