package option

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// EmptyPolicy decides what happens to non-inclusion options which evaluate to an empty string.
type EmptyPolicy int

const (
	// OmitEmpty drops options with an empty value.
	OmitEmpty EmptyPolicy = iota
	// KeepEmpty emits options with an empty value.
	KeepEmpty
)

var ErrInvalidPolicy = errors.New("invalid empty value policy")

func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	switch s {
	case "omit", "":
		return OmitEmpty, nil
	case "keep":
		return KeepEmpty, nil
	default:
		return OmitEmpty, fmt.Errorf("%w: '%s', must be one of <omit|keep>", ErrInvalidPolicy, s)
	}
}

func (p EmptyPolicy) String() string {
	switch p {
	case OmitEmpty:
		return "omit"
	case KeepEmpty:
		return "keep"
	default:
		return fmt.Sprintf("EmptyPolicy(%d)", int(p))
	}
}

// Evaluator resolves an option expression against the run context.
type Evaluator interface {
	Evaluate(expression string) (string, error)
}

// EvaluationError is returned when an option's expression cannot be evaluated.
type EvaluationError struct {
	Option     string
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("failed to evaluate option '%s' with expression %q: %v", e.Option, e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Mapper translates a Bag of declared options into the configuration expected by a particular tool.
type Mapper struct {
	eval   Evaluator
	policy EmptyPolicy
	log    *log.Logger
}

func NewMapper(eval Evaluator, policy EmptyPolicy) *Mapper {
	return &Mapper{
		eval:   eval,
		policy: policy,
		log:    log.WithPrefix("option"),
	}
}

// Map walks the schema in declaration order. The inclusion option always receives includes, whether or not it is
// empty. Every other option is emitted only if it is declared in bag, and is subject to the empty value policy.
// Any evaluation failure aborts the whole mapping.
func (m *Mapper) Map(schema Schema, includes Entry, bag *Bag) (Set, error) {
	m.log.Debugf("mapping options for %s", schema.Tool())

	result := make(Set, 0, len(schema.names))

	for _, name := range schema.names {
		if name == schema.inclusion {
			includes.Name = name
			includes.inclusion = true

			result = append(result, includes)

			continue
		}

		descriptor, ok := bag.Get(name)
		if !ok {
			continue
		}

		var value string

		if expression, ok := descriptor.Expression(); ok {
			evaluated, err := m.eval.Evaluate(expression)
			if err != nil {
				return nil, &EvaluationError{Option: name, Expression: expression, Err: err}
			}

			value = evaluated
		}

		if value == "" && m.policy == OmitEmpty {
			m.log.Debugf("%s: omitting %s, it has no value", schema.Tool(), name)
			continue
		}

		m.log.Debugf("%s: %s = %q", schema.Tool(), name, value)

		result = append(result, Entry{Name: name, Value: value})
	}

	return result, nil
}
