package tool

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/numtide/changefmt/option"
)

// Printer is an Applier which describes the option set it receives instead of invoking anything.
type Printer struct {
	name string
	w    io.Writer
}

func NewPrinter(name string, w io.Writer) *Printer {
	return &Printer{name: name, w: w}
}

func (p *Printer) Apply(_ context.Context, set option.Set) error {
	var sb strings.Builder

	sb.WriteString(p.name)
	sb.WriteString(":\n")

	for _, entry := range set {
		if entry.IsInclusion() {
			fmt.Fprintf(&sb, "  %s = [%s]\n", entry.Name, strings.Join(entry.Includes(), ", "))
		} else {
			fmt.Fprintf(&sb, "  %s = %q\n", entry.Name, entry.Value)
		}
	}

	_, err := io.WriteString(p.w, sb.String())

	return err //nolint:wrapcheck
}
