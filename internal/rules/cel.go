package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

// ExprEngine compiles and caches CEL programs for expression rules.
// Expressions are validated at rule write time, so evaluation-time compile
// errors only appear for rules written before the engine saw them.
type ExprEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]cel.Program // key: rule ID
}

// NewExprEngine creates the CEL environment for expression rules.
func NewExprEngine() (*ExprEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("facts", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("aggregateValue", cel.DoubleType),
		cel.Variable("disclosureValue", cel.DoubleType),
		cel.Variable("disclosureType", cel.StringType),
		cel.Variable("personId", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &ExprEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Validate compiles an expression without caching it. Used at rule write
// time; the expression must yield a bool.
func (e *ExprEngine) Validate(expression string) error {
	_, err := e.compile(expression)
	return err
}

// Load compiles and caches the expression for a rule.
func (e *ExprEngine) Load(rule *domain.ThresholdRule) error {
	program, err := e.compile(rule.Expression)
	if err != nil {
		return fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	e.mu.Lock()
	e.programs[rule.ID] = program
	e.mu.Unlock()
	return nil
}

// Remove drops a rule's cached program.
func (e *ExprEngine) Remove(ruleID string) {
	e.mu.Lock()
	delete(e.programs, ruleID)
	e.mu.Unlock()
}

// Count returns the number of cached programs.
func (e *ExprEngine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}

// Eval runs a rule's expression against the activation. Compiles on demand
// when the rule was never loaded.
func (e *ExprEngine) Eval(rule *domain.ThresholdRule, activation map[string]any) (bool, error) {
	e.mu.RLock()
	program, ok := e.programs[rule.ID]
	e.mu.RUnlock()

	if !ok {
		if err := e.Load(rule); err != nil {
			return false, err
		}
		e.mu.RLock()
		program = e.programs[rule.ID]
		e.mu.RUnlock()
	}

	out, _, err := program.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("rule %s: expression evaluation: %w", rule.ID, err)
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("rule %s: expression did not yield bool", rule.ID)
	}
	return bool(b), nil
}

func (e *ExprEngine) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	return e.env.Program(ast)
}
