package stats

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

type Type int

const (
	// Changed counts files resolved from the diff, before exclusions.
	Changed Type = iota
	// Excluded counts changed files dropped by the configured excludes.
	Excluded
	// FormatterOptions counts configuration entries handed to the formatter.
	FormatterOptions
	// SorterOptions counts configuration entries handed to the import sorter.
	SorterOptions
)

func (t Type) String() string {
	switch t {
	case Changed:
		return "changed"
	case Excluded:
		return "excluded"
	case FormatterOptions:
		return "formatter_options"
	case SorterOptions:
		return "sorter_options"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

type Stats struct {
	start    time.Time
	counters map[Type]*atomic.Int32
}

func New() Stats {
	counters := make(map[Type]*atomic.Int32)
	for _, t := range []Type{Changed, Excluded, FormatterOptions, SorterOptions} {
		counters[t] = &atomic.Int32{}
	}

	return Stats{
		start:    time.Now(),
		counters: counters,
	}
}

func (s *Stats) Add(t Type, delta int) int32 {
	return s.counters[t].Add(int32(delta))
}

func (s *Stats) Set(t Type, value int) {
	s.counters[t].Store(int32(value))
}

func (s *Stats) Value(t Type) int32 {
	return s.counters[t].Load()
}

func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.start)
}

func (s *Stats) Print(w io.Writer) {
	components := []string{
		"resolved %d changed files (%d excluded)",
		"formatter received %d options",
		"import sorter received %d options",
		"done in %v",
		"",
	}

	_, _ = fmt.Fprintf(w,
		strings.Join(components, "\n"),
		s.Value(Changed),
		s.Value(Excluded),
		s.Value(FormatterOptions),
		s.Value(SorterOptions),
		s.Elapsed().Round(time.Millisecond),
	)
}
