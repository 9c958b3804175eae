package tool

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/numtide/changefmt/option"
)

// Render selects how a Tool receives its option set.
type Render int

const (
	// Args passes each option through the flag template, followed by one argument per included file.
	Args Render = iota
	// XML writes a <configuration> document and makes its path available as {{ .ConfigFile }}.
	XML
	// TOML writes a TOML document and makes its path available as {{ .ConfigFile }}.
	TOML
)

var ErrUnsupportedRender = errors.New("unsupported render")

func (r Render) String() string {
	switch r {
	case Args:
		return "args"
	case XML:
		return "xml"
	case TOML:
		return "toml"
	default:
		return fmt.Sprintf("render(%d)", int(r))
	}
}

func ParseRender(s string) (Render, error) {
	switch s {
	case "", "args":
		return Args, nil
	case "xml":
		return XML, nil
	case "toml":
		return TOML, nil
	default:
		return Args, fmt.Errorf("%w: '%s', must be one of <args|xml|toml>", ErrUnsupportedRender, s)
	}
}

type flagData struct {
	Name  string
	Value string
}

type includeData struct {
	Path string
}

// RenderArgs renders each scalar entry with flag in set order, followed by each included path rendered with include.
func RenderArgs(set option.Set, flag *template.Template, include *template.Template) ([]string, error) {
	var (
		buf   bytes.Buffer
		args  []string
		paths []string
	)

	for _, entry := range set {
		if entry.IsInclusion() {
			paths = append(paths, entry.Includes()...)

			continue
		}

		buf.Reset()

		if err := flag.Execute(&buf, flagData{Name: entry.Name, Value: entry.Value}); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", entry.Name, err)
		}

		args = append(args, buf.String())
	}

	for _, path := range paths {
		buf.Reset()

		if err := include.Execute(&buf, includeData{Path: path}); err != nil {
			return nil, fmt.Errorf("failed to render include %s: %w", path, err)
		}

		args = append(args, buf.String())
	}

	return args, nil
}

type xmlIncludes struct {
	Include []string `xml:"include"`
}

// RenderXML writes set as a <configuration> document, one element per entry in set order.
func RenderXML(w io.Writer, set option.Set) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write xml header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "configuration"}}
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("failed to encode xml: %w", err)
	}

	for _, entry := range set {
		start := xml.StartElement{Name: xml.Name{Local: entry.Name}}

		var value any = entry.Value
		if entry.IsInclusion() {
			value = xmlIncludes{Include: entry.Includes()}
		}

		if err := enc.EncodeElement(value, start); err != nil {
			return fmt.Errorf("failed to encode %s: %w", entry.Name, err)
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("failed to encode xml: %w", err)
	}

	if err := enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush xml: %w", err)
	}

	_, err := io.WriteString(w, "\n")

	return err //nolint:wrapcheck
}

// RenderTOML writes set as a TOML document, one key per entry in set order.
func RenderTOML(w io.Writer, set option.Set) error {
	enc := toml.NewEncoder(w)

	for _, entry := range set {
		var value any = entry.Value
		if entry.IsInclusion() {
			value = entry.Includes()
		}

		if err := enc.Encode(map[string]any{entry.Name: value}); err != nil {
			return fmt.Errorf("failed to encode %s: %w", entry.Name, err)
		}
	}

	return nil
}
