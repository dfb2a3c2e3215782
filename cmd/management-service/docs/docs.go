// Package docs registers the OpenAPI description of the management API with
// swag so gin-swagger can serve it. Regenerate with swag init when handler
// annotations change.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/audit/logs": {
            "get": {
                "description": "Newest first, optionally limited to one stream",
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Get audit logs",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "stream_id", "in": "query"},
                    {"type": "integer", "default": 100, "description": "Maximum number of entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.AuditEntry"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/streams": {
            "get": {
                "description": "Get every stream with its rules, enabled or paused",
                "produces": ["application/json"],
                "tags": ["streams"],
                "summary": "List all streams",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/routing.Stream"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Create a stream together with its initial rules. Every rule is validated before anything is stored.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["streams"],
                "summary": "Create a new stream",
                "parameters": [
                    {"type": "string", "description": "Actor recorded in the audit log", "name": "X-User", "in": "header"},
                    {"description": "Stream definition", "name": "stream", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.CreateStreamRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/routing.Stream"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/streams/rule-types": {
            "get": {
                "produces": ["application/json"],
                "tags": ["streams"],
                "summary": "List supported rule types",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/management.RuleTypesResponse"}}
                }
            }
        },
        "/streams/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["streams"],
                "summary": "Get a stream by ID",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/routing.Stream"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "put": {
                "description": "Change the title or description. Rules are edited through the rules endpoints.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["streams"],
                "summary": "Update a stream",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "stream", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.UpdateStreamRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/routing.Stream"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["streams"],
                "summary": "Delete a stream",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/streams/{id}/audit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Get audit logs for a stream",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 100, "description": "Maximum number of entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.AuditEntry"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/streams/{id}/pause": {
            "post": {
                "description": "A paused stream is left out of routing until it is resumed",
                "produces": ["application/json"],
                "tags": ["streams"],
                "summary": "Pause a stream",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/routing.Stream"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/streams/{id}/resume": {
            "post": {
                "produces": ["application/json"],
                "tags": ["streams"],
                "summary": "Resume a paused stream",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/routing.Stream"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/streams/{id}/rules": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["stream-rules"],
                "summary": "Add a rule to a stream",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true},
                    {"description": "Rule definition", "name": "rule", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.CreateRuleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/routing.StreamRule"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/streams/{id}/rules/{ruleId}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["stream-rules"],
                "summary": "Update a stream rule",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Rule ID", "name": "ruleId", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "rule", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.UpdateRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/routing.StreamRule"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["stream-rules"],
                "summary": "Delete a stream rule",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Rule ID", "name": "ruleId", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/streams/{id}/test": {
            "post": {
                "description": "Report how a sample GELF message fares against every rule of one stream",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["streams"],
                "summary": "Test a message against a stream",
                "parameters": [
                    {"type": "string", "description": "Stream ID", "name": "id", "in": "path", "required": true},
                    {"description": "Sample message", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/management.TestStreamRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/routing.Explanation"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "details": {"type": "object", "additionalProperties": true},
                "error": {"type": "string"},
                "error_code": {"type": "string"}
            }
        },
        "management.CreateRuleRequest": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "description": {"type": "string"},
                "inverted": {"type": "boolean"},
                "type": {"$ref": "#/definitions/routing.RuleType"},
                "value": {"type": "string"}
            }
        },
        "management.CreateStreamRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "description": {"type": "string"},
                "disabled": {"type": "boolean"},
                "rules": {"type": "array", "items": {"$ref": "#/definitions/management.CreateRuleRequest"}},
                "title": {"type": "string"}
            }
        },
        "management.RuleTypesResponse": {
            "type": "object",
            "properties": {
                "expression_examples": {"type": "object", "additionalProperties": {"type": "string"}},
                "types": {"type": "array", "items": {"$ref": "#/definitions/routing.RuleTypeInfo"}}
            }
        },
        "management.TestStreamRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {
                "message": {"$ref": "#/definitions/models.Message"}
            }
        },
        "management.UpdateRuleRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "inverted": {"type": "boolean"},
                "type": {"$ref": "#/definitions/routing.RuleType"},
                "value": {"type": "string"}
            }
        },
        "management.UpdateStreamRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "models.AuditEntry": {
            "type": "object",
            "properties": {
                "action": {"type": "string"},
                "changed_by": {"type": "string"},
                "id": {"type": "string"},
                "new_value": {"type": "object", "additionalProperties": true},
                "old_value": {"type": "object", "additionalProperties": true},
                "rule_id": {"type": "string"},
                "stream_id": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "models.Message": {
            "description": "GELF message. Additional fields are carried as _name keys.",
            "type": "object",
            "additionalProperties": true,
            "properties": {
                "facility": {"type": "string"},
                "file": {"type": "string"},
                "full_message": {"type": "string"},
                "host": {"type": "string"},
                "id": {"type": "string"},
                "level": {"type": "integer"},
                "line": {"type": "integer"},
                "short_message": {"type": "string"},
                "timestamp": {"type": "number"},
                "version": {"type": "string"}
            }
        },
        "routing.Explanation": {
            "type": "object",
            "properties": {
                "matched": {"type": "boolean"},
                "rules": {"type": "array", "items": {"$ref": "#/definitions/routing.RuleResult"}},
                "stream_id": {"type": "string"}
            }
        },
        "routing.RuleResult": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "matched": {"type": "boolean"},
                "rule_id": {"type": "string"},
                "type": {"$ref": "#/definitions/routing.RuleType"}
            }
        },
        "routing.RuleType": {
            "description": "Rule type name. The numeric id is accepted on input.",
            "type": "string",
            "enum": [
                "MESSAGE",
                "HOST",
                "SEVERITY",
                "FACILITY",
                "TIMEFRAME",
                "ADDITIONAL_FIELD",
                "SEVERITY_OR_HIGHER",
                "HOST_REGEX",
                "FULL_MESSAGE",
                "FILENAME_LINE",
                "EXPRESSION"
            ]
        },
        "routing.RuleTypeInfo": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "examples": {"type": "array", "items": {"type": "string"}},
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "value_format": {"type": "string"}
            }
        },
        "routing.Stream": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "description": {"type": "string"},
                "disabled": {"type": "boolean"},
                "id": {"type": "string"},
                "rules": {"type": "array", "items": {"$ref": "#/definitions/routing.StreamRule"}},
                "title": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "routing.StreamRule": {
            "type": "object",
            "properties": {
                "description": {"type": "string"},
                "id": {"type": "string"},
                "inverted": {"type": "boolean"},
                "position": {"type": "integer"},
                "stream_id": {"type": "string"},
                "type": {"$ref": "#/definitions/routing.RuleType"},
                "value": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Stream Router Management API",
	Description:      "REST API for managing streams and the rules that route GELF messages into them",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
