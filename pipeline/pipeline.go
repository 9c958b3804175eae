package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/numtide/changefmt/changes"
	"github.com/numtide/changefmt/option"
	"github.com/numtide/changefmt/stats"
)

type ChangeResolver interface {
	Resolve(ctx context.Context) (changes.ChangeSet, error)
}

type Mapper interface {
	Map(schema option.Schema, includes option.Entry, bag *option.Bag) (option.Set, error)
}

type Formatter interface {
	Format(ctx context.Context, set option.Set) error
}

type ImportSorter interface {
	SortImports(ctx context.Context, set option.Set) error
}

// Observer is notified of every state transition, including the one into Failed.
type Observer interface {
	Transition(from State, to State)
}

// Result is what a run produced up to the state it finished in.
type Result struct {
	State            State
	Changes          changes.ChangeSet
	FormatterOptions option.Set
	SorterOptions    option.Set
}

// Pipeline resolves the changed files once, then configures and applies the formatter followed by the import sorter.
type Pipeline struct {
	resolver  ChangeResolver
	mapper    Mapper
	bag       *option.Bag
	formatter Formatter
	sorter    ImportSorter

	formatterSchema option.Schema
	sorterSchema    option.Schema

	stats     *stats.Stats
	observers []Observer
	log       *log.Logger
}

// New wires the pipeline steps together. Counters go to statz, or to a private set when statz is nil.
func New(
	resolver ChangeResolver,
	mapper Mapper,
	bag *option.Bag,
	formatter Formatter,
	sorter ImportSorter,
	statz *stats.Stats,
) *Pipeline {
	if statz == nil {
		s := stats.New()
		statz = &s
	}

	return &Pipeline{
		resolver:        resolver,
		mapper:          mapper,
		bag:             bag,
		formatter:       formatter,
		sorter:          sorter,
		formatterSchema: option.FormatterSchema(),
		sorterSchema:    option.ImportSorterSchema(),
		stats:           statz,
		log:             log.WithPrefix("pipeline"),
	}
}

// Observe registers o to be notified of state transitions.
func (p *Pipeline) Observe(o Observer) {
	p.observers = append(p.observers, o)
}

// Run executes every step in order. The first failing step ends the run in Failed and its error is returned as a
// *StepError. The returned Result is never nil.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{State: Start}

	steps := []struct {
		to  State
		run func() error
	}{
		{ChangesResolved, func() (err error) {
			result.Changes, err = p.resolver.Resolve(ctx)
			return err
		}},
		{FormatterConfigured, func() (err error) {
			result.FormatterOptions, err = p.configure(p.formatterSchema, result.Changes)
			p.stats.Set(stats.FormatterOptions, len(result.FormatterOptions))

			return err
		}},
		{Formatted, func() error {
			return p.formatter.Format(ctx, result.FormatterOptions)
		}},
		{SorterConfigured, func() (err error) {
			result.SorterOptions, err = p.configure(p.sorterSchema, result.Changes)
			p.stats.Set(stats.SorterOptions, len(result.SorterOptions))

			return err
		}},
		{Sorted, func() error {
			return p.sorter.SortImports(ctx, result.SorterOptions)
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, p.fail(result, step.to, err)
		}

		if err := step.run(); err != nil {
			return result, p.fail(result, step.to, err)
		}

		p.transition(result, step.to)
	}

	p.transition(result, Done)
	p.log.Infof("%d changed file(s) handled in %v", len(result.Changes), time.Since(start))

	return result, nil
}

func (p *Pipeline) configure(schema option.Schema, changeSet changes.ChangeSet) (option.Set, error) {
	set, err := p.mapper.Map(schema, option.IncludesEntry(schema.Inclusion(), changeSet), p.bag)
	if err != nil {
		return nil, fmt.Errorf("failed to map %s options: %w", schema.Tool(), err)
	}

	return set, nil
}

func (p *Pipeline) fail(result *Result, to State, err error) error {
	stepErr := &StepError{State: to, Err: err}
	p.log.Debugf("%v", stepErr)
	p.transition(result, Failed)

	return stepErr
}

func (p *Pipeline) transition(result *Result, to State) {
	from := result.State
	result.State = to

	p.log.Debugf("%s -> %s", from, to)

	for _, o := range p.observers {
		o.Transition(from, to)
	}
}
