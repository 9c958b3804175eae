package pipeline

import "fmt"

// State is a step of a pipeline run. A run moves through the states in declaration order, or into Failed.
type State int

const (
	Start State = iota
	ChangesResolved
	FormatterConfigured
	Formatted
	SorterConfigured
	Sorted
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case ChangesResolved:
		return "changes-resolved"
	case FormatterConfigured:
		return "formatter-configured"
	case Formatted:
		return "formatted"
	case SorterConfigured:
		return "sorter-configured"
	case Sorted:
		return "sorted"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// step describes the work which leads into s.
func (s State) step() string {
	switch s {
	case ChangesResolved:
		return "resolve changes"
	case FormatterConfigured:
		return "configure formatter"
	case Formatted:
		return "format"
	case SorterConfigured:
		return "configure import sorter"
	case Sorted:
		return "sort imports"
	default:
		return "reach " + s.String()
	}
}

// StepError is returned when the step leading into State fails.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.State.step(), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
