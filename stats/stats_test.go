package stats_test

import (
	"bytes"
	"testing"

	"github.com/numtide/changefmt/stats"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	as := require.New(t)

	statz := stats.New()

	as.Equal(int32(3), statz.Add(stats.Changed, 3))
	as.Equal(int32(4), statz.Add(stats.Changed, 1))
	as.Equal(int32(1), statz.Add(stats.Excluded, 1))

	statz.Set(stats.FormatterOptions, 12)
	statz.Set(stats.SorterOptions, 9)
	statz.Set(stats.SorterOptions, 7)

	as.Equal(int32(4), statz.Value(stats.Changed))
	as.Equal(int32(7), statz.Value(stats.SorterOptions))

	var buf bytes.Buffer
	statz.Print(&buf)

	out := buf.String()
	as.Contains(out, "resolved 4 changed files (1 excluded)\n")
	as.Contains(out, "formatter received 12 options\n")
	as.Contains(out, "import sorter received 7 options\n")
	as.Contains(out, "done in ")
}

func TestTypeString(t *testing.T) {
	as := require.New(t)

	as.Equal("changed", stats.Changed.String())
	as.Equal("sorter_options", stats.SorterOptions.String())
	as.Equal("Type(42)", stats.Type(42).String())
}
