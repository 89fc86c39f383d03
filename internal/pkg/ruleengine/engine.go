package ruleengine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
)

// Definition is a named predicate within a rule set. Lower Priority runs first.
type Definition struct {
	Name        string
	Description string
	Priority    int
	When        func(insurance.RuleContext) bool
}

// EvaluationError reports a rule that failed while being evaluated.
type EvaluationError struct {
	RuleSet string
	Rule    string
	Cause   any
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %s/%s failed: %v", e.RuleSet, e.Rule, e.Cause)
}

// Engine evaluates registered rule sets in process.
type Engine struct {
	mu   sync.RWMutex
	sets map[string][]Definition
}

func New() *Engine {
	return &Engine{sets: make(map[string][]Definition)}
}

// Register appends definitions to a rule set.
func (e *Engine) Register(ruleSet string, defs ...Definition) {
	e.mu.Lock()
	defer e.mu.Unlock()

	set := append(e.sets[ruleSet], defs...)
	sort.SliceStable(set, func(i, j int) bool { return set[i].Priority < set[j].Priority })
	e.sets[ruleSet] = set
}

// EvaluateRules returns the rules whose predicate matches, in priority order.
func (e *Engine) EvaluateRules(ctx context.Context, ruleSet string, input insurance.RuleContext) ([]insurance.Rule, error) {
	e.mu.RLock()
	defs, ok := e.sets[ruleSet]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", insurance.ErrRuleSetNotFound, ruleSet)
	}

	var matched []insurance.Rule
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hit, err := evaluate(ruleSet, def, input)
		if err != nil {
			return nil, err
		}
		if hit {
			matched = append(matched, insurance.Rule{Name: def.Name, Description: def.Description})
		}
	}
	return matched, nil
}

func evaluate(ruleSet string, def Definition, input insurance.RuleContext) (hit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EvaluationError{RuleSet: ruleSet, Rule: def.Name, Cause: r}
		}
	}()
	return def.When(input), nil
}
