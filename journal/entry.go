package journal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/numtide/changefmt/option"
	"github.com/numtide/changefmt/pipeline"
)

// Entry describes a single pipeline run.
type Entry struct {
	Sequence     uint64        `msgpack:"-"`
	Started      time.Time     `msgpack:"started"`
	Duration     time.Duration `msgpack:"duration"`
	DiffType     string        `msgpack:"diff_type"`
	DryRun       bool          `msgpack:"dry_run"`
	State        string        `msgpack:"state"`
	Error        string        `msgpack:"error,omitempty"`
	Changes      []string      `msgpack:"changes"`
	Formatter    []Option      `msgpack:"formatter"`
	ImportSorter []Option      `msgpack:"import_sorter"`
	Transitions  []Transition  `msgpack:"transitions"`
}

type Option struct {
	Name     string   `msgpack:"name"`
	Value    string   `msgpack:"value,omitempty"`
	Includes []string `msgpack:"includes,omitempty"`
}

type Transition struct {
	From string    `msgpack:"from"`
	To   string    `msgpack:"to"`
	At   time.Time `msgpack:"at"`
}

func (e *Entry) Print(w io.Writer) {
	status := e.State
	if e.DryRun {
		status += " (dry run)"
	}

	_, _ = fmt.Fprintf(w, "#%d %s %s in %v: %d changed file(s) from %s diff\n",
		e.Sequence, e.Started.Format(time.RFC3339), status, e.Duration.Round(time.Millisecond),
		len(e.Changes), e.DiffType,
	)

	if e.Error != "" {
		_, _ = fmt.Fprintf(w, "  error: %s\n", e.Error)
	}

	if len(e.Formatter) > 0 {
		_, _ = fmt.Fprintf(w, "  formatter: %s\n", Summary(e.Formatter))
	}

	if len(e.ImportSorter) > 0 {
		_, _ = fmt.Fprintf(w, "  import-sorter: %s\n", Summary(e.ImportSorter))
	}

	for _, path := range e.Changes {
		_, _ = fmt.Fprintf(w, "  %s\n", path)
	}
}

// Run observes a pipeline run and produces its Entry.
type Run struct {
	entry Entry
	now   func() time.Time
}

func NewRun(diffType string, dryRun bool) *Run {
	r := &Run{now: time.Now}
	r.entry.Started = r.now()
	r.entry.DiffType = diffType
	r.entry.DryRun = dryRun
	r.entry.State = pipeline.Start.String()

	return r
}

func (r *Run) Transition(from pipeline.State, to pipeline.State) {
	r.entry.State = to.String()
	r.entry.Transitions = append(r.entry.Transitions, Transition{
		From: from.String(),
		To:   to.String(),
		At:   r.now(),
	})
}

// Finish completes the entry with the outcome of the run.
func (r *Run) Finish(result *pipeline.Result, err error) *Entry {
	entry := r.entry
	entry.Duration = r.now().Sub(entry.Started)

	if err != nil {
		entry.Error = err.Error()
	}

	if result != nil {
		entry.State = result.State.String()
		entry.Changes = result.Changes.Strings()
		entry.Formatter = options(result.FormatterOptions)
		entry.ImportSorter = options(result.SorterOptions)
	}

	return &entry
}

func options(set option.Set) []Option {
	result := make([]Option, len(set))

	for i, e := range set {
		result[i] = Option{Name: e.Name, Value: e.Value}
		if e.IsInclusion() {
			result[i].Includes = e.Includes()
		}
	}

	return result
}

// Summary is a one line description of the options handed to a tool.
func Summary(opts []Option) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		if o.Includes != nil || o.Name == option.Includes {
			parts[i] = fmt.Sprintf("%s=[%d]", o.Name, len(o.Includes))
		} else {
			parts[i] = fmt.Sprintf("%s=%s", o.Name, o.Value)
		}
	}

	return strings.Join(parts, " ")
}
