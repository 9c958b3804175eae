package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/numtide/changefmt/config"
	"github.com/numtide/changefmt/option"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
)

const (
	DefaultFlagTemplate    = "--{{ .Name }}={{ .Value }}"
	DefaultIncludeTemplate = "{{ .Path }}"
)

var (
	ErrInvalidName = errors.New("tool name must only contain alphanumeric characters, `_` or `-`")
	// ErrCommandNotFound is returned when the Command for a Tool is not available.
	ErrCommandNotFound = errors.New("tool command not found in PATH")
	ErrMissingConfig   = errors.New("tool is not configured")

	nameRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")
)

// Applier hands a resolved option set to an external tool.
type Applier interface {
	Apply(ctx context.Context, set option.Set) error
}

// Formatter adapts an Applier to the formatting step.
type Formatter struct {
	Applier
}

func (f Formatter) Format(ctx context.Context, set option.Set) error {
	return f.Apply(ctx, set) //nolint:wrapcheck
}

// ImportSorter adapts an Applier to the import sorting step.
type ImportSorter struct {
	Applier
}

func (s ImportSorter) SortImports(ctx context.Context, set option.Set) error {
	return s.Apply(ctx, set) //nolint:wrapcheck
}

// Tool represents a command which is handed the changed files and the options resolved for it.
type Tool struct {
	name   string
	config *config.Tool
	render Render

	log        *log.Logger
	executable string // path to the executable described by Command
	workingDir string

	// internal, compiled versions of Options, FlagTemplate and IncludeTemplate.
	options []*template.Template
	flag    *template.Template
	include *template.Template
}

// optionData is available to the templates within Options.
type optionData struct {
	ConfigFile string
}

func (t *Tool) Name() string {
	return t.name
}

// Executable returns the path to the executable defined by Command.
func (t *Tool) Executable() string {
	return t.executable
}

func (t *Tool) Render() Render {
	return t.render
}

func (t *Tool) Apply(ctx context.Context, set option.Set) error {
	start := time.Now()

	var (
		err      error
		args     []string
		includes []string
	)

	if entry, ok := inclusion(set); ok {
		includes = entry.Includes()
	}

	switch t.render {
	case Args:
		// exit early if nothing to process
		if len(includes) == 0 {
			t.log.Info("no changed files, nothing to do")

			return nil
		}

		if args, err = t.renderOptions(optionData{}); err != nil {
			return err
		}

		flags, err := RenderArgs(set, t.flag, t.include)
		if err != nil {
			return fmt.Errorf("failed to render arguments for %s: %w", t.name, err)
		}

		args = append(args, flags...)

	case XML, TOML:
		path, err := t.writeConfig(set)
		if err != nil {
			return err
		}

		defer func() {
			if err := os.Remove(path); err != nil {
				t.log.Warnf("failed to remove %s: %v", path, err)
			}
		}()

		if args, err = t.renderOptions(optionData{ConfigFile: path}); err != nil {
			return err
		}
	}

	// execute the command
	cmd := exec.CommandContext(ctx, t.executable, args...) //nolint:gosec
	// replace the default Cancel handler installed by CommandContext because it sends SIGKILL (-9).
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.Dir = t.workingDir

	// log out the command being executed
	t.log.Debugf("executing: %s", cmd.String())

	if out, err := cmd.CombinedOutput(); err != nil {
		t.log.Errorf("failed to apply with options '%v': %s", t.config.Options, err)

		if len(out) > 0 {
			_, _ = fmt.Fprintf(os.Stderr, "\n%s\n", out)
		}

		return fmt.Errorf("%s '%s' with options '%v' failed to apply: %w", t.name, t.config.Command, t.config.Options, err)
	}

	t.log.Infof("%v file(s) processed in %v", len(includes), time.Since(start))

	return nil
}

func (t *Tool) renderOptions(data optionData) ([]string, error) {
	args := make([]string, 0, len(t.options))

	for _, tmpl := range t.options {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render option '%s' for %s: %w", tmpl.Name(), t.name, err)
		}

		args = append(args, buf.String())
	}

	return args, nil
}

// writeConfig renders set into a temporary file, returning its path.
func (t *Tool) writeConfig(set option.Set) (string, error) {
	file, err := os.CreateTemp("", fmt.Sprintf("%s-%s-*.%s", "changefmt", t.name, t.render))
	if err != nil {
		return "", fmt.Errorf("failed to create config file for %s: %w", t.name, err)
	}

	render := RenderXML
	if t.render == TOML {
		render = RenderTOML
	}

	if err = render(file, set); err == nil {
		err = file.Close()
	} else {
		_ = file.Close()
	}

	if err != nil {
		_ = os.Remove(file.Name())

		return "", fmt.Errorf("failed to write config file for %s: %w", t.name, err)
	}

	t.log.Debugf("wrote %s config to %s", t.render, file.Name())

	return file.Name(), nil
}

func inclusion(set option.Set) (option.Entry, bool) {
	for _, entry := range set {
		if entry.IsInclusion() {
			return entry, true
		}
	}

	return option.Entry{}, false
}

// New is used to create a new Tool.
func New(
	name string,
	workingDir string,
	env expand.Environ,
	cfg *config.Tool,
) (*Tool, error) {
	var err error

	// check the name is valid
	if !nameRegex.MatchString(name) {
		return nil, ErrInvalidName
	}

	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, name)
	}

	t := Tool{}

	// capture config and the tool's name
	t.name = name
	t.config = cfg
	t.workingDir = workingDir

	if t.render, err = ParseRender(cfg.Render); err != nil {
		return nil, err
	}

	// test if the tool is available
	executable, err := interp.LookPathDir(workingDir, env, cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, cfg.Command)
	}

	t.executable = executable

	// initialise internal state
	t.log = log.WithPrefix(fmt.Sprintf("tool | %s", name))

	for idx, opt := range cfg.Options {
		tmpl, err := parseTemplate(fmt.Sprintf("options[%d]", idx), opt)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s options: %w", name, err)
		}

		t.options = append(t.options, tmpl)
	}

	if t.flag, err = parseTemplate("flag-template", orDefault(cfg.FlagTemplate, DefaultFlagTemplate)); err != nil {
		return nil, fmt.Errorf("failed to compile %s flag template: %w", name, err)
	}

	if t.include, err = parseTemplate(
		"include-template", orDefault(cfg.IncludeTemplate, DefaultIncludeTemplate),
	); err != nil {
		return nil, fmt.Errorf("failed to compile %s include template: %w", name, err)
	}

	return &t, nil
}

func parseTemplate(name string, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").Parse(text) //nolint:wrapcheck
}

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}
