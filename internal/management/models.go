package management

import (
	"streamrouter/internal/routing"
	"streamrouter/pkg/models"
)

type CreateRuleRequest struct {
	Type        routing.RuleType `json:"type" binding:"required"`
	Value       string           `json:"value"`
	Inverted    bool             `json:"inverted"`
	Description string           `json:"description"`
}

type UpdateRuleRequest struct {
	Type        *routing.RuleType `json:"type"`
	Value       *string           `json:"value"`
	Inverted    *bool             `json:"inverted"`
	Description *string           `json:"description"`
}

type CreateStreamRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	Disabled    bool                `json:"disabled"`
	Rules       []CreateRuleRequest `json:"rules"`
}

type UpdateStreamRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type TestStreamRequest struct {
	Message *models.Message `json:"message" binding:"required"`
}

type RuleTypesResponse struct {
	Types              []routing.RuleTypeInfo `json:"types"`
	ExpressionExamples map[string]string      `json:"expression_examples"`
}
