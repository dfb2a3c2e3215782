package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamrouter/pkg/models"
)

func testMessage() *models.Message {
	return models.NewMessageBuilder().
		WithHost("web01").
		WithShortMessage("upstream timeout").
		WithLevel(3).
		WithFacility("nginx").
		WithField("env", "prod").
		Build()
}

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateRuleExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{name: "host comparison", expr: `message.host == "web01"`},
		{name: "field presence", expr: `has(fields.env)`},
		{name: "syntax error", expr: `message.host ==`, wantError: true},
		{name: "undefined variable", expr: `payload.status == "x"`, wantError: true},
		{name: "non-bool result", expr: `"constant"`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateRuleExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	msg := testMessage()

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "host matches", expr: `message.host == "web01"`, want: true},
		{name: "host differs", expr: `message.host == "web02"`, want: false},
		{name: "level bound", expr: `message.level <= 3`, want: true},
		{name: "contains", expr: `message.short_message.contains("timeout")`, want: true},
		{name: "field equals", expr: `has(fields.env) && fields.env == "prod"`, want: true},
		{name: "field absent", expr: `has(fields.region)`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateExpression(context.Background(), tt.expr, msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_MissingKeyIsRuntimeError(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.Compile(`fields.region == "eu"`)
	require.NoError(t, err)

	_, err = eval.Evaluate(context.Background(), program, testMessage())
	assert.Error(t, err)
}

func TestActivation_OmitsUnsetOptionals(t *testing.T) {
	msg := models.NewMessageBuilder().WithHost("h").WithShortMessage("s").Build()
	vars := Activation(msg)

	message := vars["message"].(map[string]interface{})
	assert.NotContains(t, message, "level")
	assert.NotContains(t, message, "line")
	assert.Equal(t, "h", message["host"])
}

func TestRuleExpressionExamplesCompile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range RuleExpressionExamples {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, eval.ValidateRuleExpression(expr))
		})
	}
}
