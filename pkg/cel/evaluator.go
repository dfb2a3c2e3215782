package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"streamrouter/pkg/models"
)

// Evaluator compiles and runs boolean expressions over a GELF message.
// Expressions see two variables: "message" holds the standard GELF fields,
// "fields" holds the additional fields without their leading underscore.
type Program = cel.Program

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("message", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// ValidateRuleExpression checks that expression compiles and yields a bool.
func (e *Evaluator) ValidateRuleExpression(expression string) error {
	_, err := e.Compile(expression)
	return err
}

// Compile type-checks expression and builds a reusable program. Programs are
// safe for concurrent use.
func (e *Evaluator) Compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("rule expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

// Evaluate runs a compiled program against msg.
func (e *Evaluator) Evaluate(ctx context.Context, program cel.Program, msg *models.Message) (bool, error) {
	result, _, err := program.ContextEval(ctx, Activation(msg))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

// EvaluateExpression compiles and runs expression in one step. Used by the
// management API to dry-run a rule.
func (e *Evaluator) EvaluateExpression(ctx context.Context, expression string, msg *models.Message) (bool, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return false, err
	}
	return e.Evaluate(ctx, program, msg)
}

// Activation builds the variable bindings for msg. Absent optional fields are
// left out so expressions can test them with has().
func Activation(msg *models.Message) map[string]interface{} {
	message := make(map[string]interface{})
	fields := make(map[string]interface{})
	if msg == nil {
		return map[string]interface{}{"message": message, "fields": fields}
	}

	message["host"] = msg.Host
	message["short_message"] = msg.ShortMessage
	if msg.ID != "" {
		message["id"] = msg.ID
	}
	if msg.FullMessage != "" {
		message["full_message"] = msg.FullMessage
	}
	if msg.Facility != "" {
		message["facility"] = msg.Facility
	}
	if msg.File != "" {
		message["file"] = msg.File
	}
	if msg.Level != nil {
		message["level"] = int64(*msg.Level)
	}
	if msg.Line != nil {
		message["line"] = int64(*msg.Line)
	}
	if !msg.Timestamp.IsZero() {
		message["timestamp"] = msg.Timestamp
	}

	for k, v := range msg.Fields {
		fields[k] = v
	}

	return map[string]interface{}{
		"message": message,
		"fields":  fields,
	}
}
