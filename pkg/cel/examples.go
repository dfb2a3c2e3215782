package cel

// RuleExpressionExamples is served by the management API next to the rule
// type catalogue so operators can copy a working starting point.
var RuleExpressionExamples = map[string]string{
	"host_equals":         `message.host == "web01"`,
	"severity_range":      `has(message.level) && message.level <= 3`,
	"short_message_match": `message.short_message.contains("timeout")`,
	"regex":               `message.short_message.matches("^(WARN|ERROR)")`,
	"field_equals":        `has(fields.env) && fields.env == "prod"`,
	"field_in_list":       `has(fields.region) && fields.region in ["eu-west-1", "eu-central-1"]`,
	"facility_and_host":   `message.facility == "nginx" && message.host.startsWith("edge-")`,
	"combined":            `(message.host == "db01" || message.host == "db02") && has(message.level) && message.level < 4`,
}
