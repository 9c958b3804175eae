package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/numtide/changefmt/expr"
	"github.com/numtide/changefmt/option"
	"github.com/numtide/changefmt/scm"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	ErrNoTool           = errors.New("no tool configured")
	ErrInvalidProperty  = errors.New("project properties must be of the form KEY=VALUE")
	ErrInvalidHistory   = errors.New("history must not be negative")
	ErrMissingOptionKey = errors.New("option is missing a name")
)

// Config is used to represent the project, its diff, the two tools and the options shared between them.
type Config struct {
	DryRun           bool   `mapstructure:"dry-run" toml:"-"` // not allowed in config
	EmptyValues      string `mapstructure:"empty-values" toml:"empty-values,omitempty"`
	History          int    `mapstructure:"history" toml:"-"` // not allowed in config
	NoJournal        bool   `mapstructure:"no-journal" toml:"no-journal,omitempty"`
	Quiet            bool   `mapstructure:"quiet" toml:"quiet,omitempty"`
	Strict           bool   `mapstructure:"strict" toml:"strict,omitempty"`
	Verbose          uint8  `mapstructure:"verbose" toml:"verbose,omitempty"`
	WorkingDirectory string `mapstructure:"working-dir" toml:"-"`

	Project      Project  `mapstructure:"project" toml:"project"`
	Diff         Diff     `mapstructure:"diff" toml:"diff"`
	Formatter    *Tool    `mapstructure:"formatter" toml:"formatter,omitempty"`
	ImportSorter *Tool    `mapstructure:"import-sorter" toml:"import-sorter,omitempty"`
	Options      []Option `mapstructure:"options" toml:"options,omitempty"`
}

type Project struct {
	// Root is the project root, defaulting to the directory containing the config file.
	Root string `mapstructure:"root" toml:"root,omitempty"`
	// ID names the diff artifact, defaulting to the base name of Root.
	ID              string `mapstructure:"id" toml:"id,omitempty"`
	BuildDir        string `mapstructure:"build-dir" toml:"build-dir,omitempty"`
	SourceDir       string `mapstructure:"source-dir" toml:"source-dir,omitempty"`
	TestSourceDir   string `mapstructure:"test-source-dir" toml:"test-source-dir,omitempty"`
	Encoding        string `mapstructure:"encoding" toml:"encoding,omitempty"`
	CompilerRelease string `mapstructure:"compiler-release" toml:"compiler-release,omitempty"`
	// Properties are extra expression variables in the form KEY=VALUE.
	Properties []string `mapstructure:"properties" toml:"properties,omitempty"`
	// PropertiesFile is a dotenv file of extra expression variables.
	PropertiesFile string `mapstructure:"properties-file" toml:"properties-file,omitempty"`
}

type Diff struct {
	// Type selects how the diff is produced: auto, git, git-commits, jujutsu or command.
	Type string `mapstructure:"type" toml:"type,omitempty"`
	// Baseline is the revision changes are measured against.
	Baseline string `mapstructure:"baseline" toml:"baseline,omitempty"`
	// Command produces the diff on stdout when Type is command.
	Command string `mapstructure:"command" toml:"command,omitempty"`
	// KeepArtifact leaves the diff artifact in the project root after it has been read.
	KeepArtifact bool `mapstructure:"keep-artifact" toml:"keep-artifact,omitempty"`
	// Excludes is a list of glob patterns removing paths from the change set.
	Excludes []string `mapstructure:"excludes" toml:"excludes,omitempty"`
}

type Tool struct {
	// Command is the command to invoke when applying this tool.
	Command string `mapstructure:"command" toml:"command"`
	// Options are an optional list of args to be passed to Command. `{{ .ConfigFile }}` is replaced with the path
	// of the rendered configuration when Render is xml or toml.
	Options []string `mapstructure:"options" toml:"options,omitempty"`
	// Render selects how the configuration is handed over: args, xml or toml.
	Render string `mapstructure:"render" toml:"render,omitempty"`
	// FlagTemplate renders a single option as an argument when Render is args.
	FlagTemplate string `mapstructure:"flag-template" toml:"flag-template,omitempty"`
	// IncludeTemplate renders a single changed file as an argument when Render is args.
	IncludeTemplate string `mapstructure:"include-template" toml:"include-template,omitempty"`
}

type Option struct {
	Name    string  `mapstructure:"name" toml:"name"`
	Value   *string `mapstructure:"value" toml:"value,omitempty"`
	Default *string `mapstructure:"default" toml:"default,omitempty"`
}

// SetFlags appends our flags to the provided flag set.
// Flags for nested config entries are bound to their viper key by BindFlags.
func SetFlags(fs *pflag.FlagSet) {
	fs.Bool(
		"dry-run", false,
		"Print the configuration each tool would receive instead of invoking it. (env $CHANGEFMT_DRY_RUN)",
	)
	fs.String(
		"empty-values", "omit",
		"What to do with options which evaluate to an empty value. Possible values are <omit|keep>. "+
			"(env $CHANGEFMT_EMPTY_VALUES)",
	)
	fs.Int(
		"history", 0,
		"Print the given number of most recent runs from the journal and exit.",
	)
	fs.Bool(
		"no-journal", false,
		"Do not record this run in the journal. (env $CHANGEFMT_NO_JOURNAL)",
	)
	fs.BoolP(
		"quiet", "q", false,
		"Only log errors. (env $CHANGEFMT_QUIET)",
	)
	fs.Bool(
		"strict", false,
		"Fail if an option expression references an unset variable. (env $CHANGEFMT_STRICT)",
	)
	fs.CountP(
		"verbose", "v",
		"Set the verbosity of logs e.g. -vv. (env $CHANGEFMT_VERBOSE)",
	)
	fs.StringP(
		"working-dir", "C", ".",
		"Run as if changefmt was started in the specified working directory instead of the current working "+
			"directory. (env $CHANGEFMT_WORKING_DIR)",
	)

	// nested entries
	fs.String(
		"project-root", "",
		"The project root (defaults to the directory containing the config file). (env $CHANGEFMT_PROJECT_ROOT)",
	)
	fs.String(
		"project-id", "",
		"The project identifier, used to name the diff artifact (defaults to the base name of the project root). "+
			"(env $CHANGEFMT_PROJECT_ID)",
	)
	fs.String(
		"diff-type", "auto",
		"How to produce the diff. Possible values are <auto|git|git-commits|jujutsu|command>. "+
			"(env $CHANGEFMT_DIFF_TYPE)",
	)
	fs.String(
		"baseline", "",
		"The revision changes are measured against (defaults depend on the diff type). "+
			"(env $CHANGEFMT_DIFF_BASELINE)",
	)
	fs.Bool(
		"keep-diff", false,
		"Keep the diff artifact in the project root once it has been read. (env $CHANGEFMT_DIFF_KEEP_ARTIFACT)",
	)
}

// nestedFlags maps flag names to the config entries they override.
var nestedFlags = map[string]string{
	"project-root": "project.root",
	"project-id":   "project.id",
	"diff-type":    "diff.type",
	"baseline":     "diff.baseline",
	"keep-diff":    "diff.keep-artifact",
}

// BindFlags binds the flag set to v. Flags for nested entries are only bound under their nested key, so they never
// shadow a config table.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error

	fs.VisitAll(func(flag *pflag.Flag) {
		if err != nil {
			return
		}

		key, ok := nestedFlags[flag.Name]
		if !ok {
			key = flag.Name
		}

		if bindErr := v.BindPFlag(key, flag); bindErr != nil {
			err = fmt.Errorf("failed to bind flag %s to %s: %w", flag.Name, key, bindErr)
		}
	})

	return err
}

// NewViper creates a Viper instance pre-configured with the following options:
// * TOML config type
// * automatic env enabled
// * `CHANGEFMT_` env prefix for environment variables
// * replacement of `-` and `.` with `_` when mapping flags to env e.g. `diff.keep-artifact` =>
// `CHANGEFMT_DIFF_KEEP_ARTIFACT`
// * defaults for the project layout.
func NewViper() (*viper.Viper, error) {
	v := viper.New()

	// Enforce toml (may open this up to other formats in the future)
	v.SetConfigType("toml")

	// Allow env overrides for config and flags.
	v.SetEnvPrefix("changefmt")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("diff.type", "auto")
	v.SetDefault("project.build-dir", "target")
	v.SetDefault("project.source-dir", "src/main/java")
	v.SetDefault("project.test-source-dir", "src/test/java")
	v.SetDefault("project.encoding", "UTF-8")
	v.SetDefault("project.compiler-release", "")
	v.SetDefault("project.properties-file", "")
	v.SetDefault("diff.command", "")
	v.SetDefault("diff.excludes", []string{})

	return v, nil
}

// FromViper takes a viper instance and produces a Config instance.
func FromViper(v *viper.Viper) (*Config, error) {
	configReset := map[string]any{
		"dry-run":     false,
		"history":     0,
		"working-dir": ".",
	}

	// reset certain values which are not allowed to be specified in the config file
	if err := v.MergeConfigMap(configReset); err != nil {
		return nil, fmt.Errorf("failed to overwrite config values: %w", err)
	}

	// read config from viper
	var err error

	cfg := &Config{}

	if err = v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// resolve the working directory to an absolute path
	cfg.WorkingDirectory, err = filepath.Abs(cfg.WorkingDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for working directory: %w", err)
	}

	// determine the project root, falling back to the directory containing the config file
	if cfg.Project.Root == "" {
		cfg.Project.Root = filepath.Dir(v.ConfigFileUsed())
	}

	if cfg.Project.Root, err = filepath.Abs(cfg.Project.Root); err != nil {
		return nil, fmt.Errorf("failed to get absolute path for project root: %w", err)
	}

	if cfg.Project.ID == "" {
		cfg.Project.ID = filepath.Base(cfg.Project.Root)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	l := log.WithPrefix("config")
	l.Infof("project root = %s", cfg.Project.Root)
	l.Infof("project id = %s", cfg.Project.ID)

	return cfg, nil
}

// Validate checks the entries which can be checked without touching the filesystem.
func (c *Config) Validate() error {
	if _, err := scm.TypeString(c.Diff.Type); err != nil {
		return err
	}

	if _, err := option.ParseEmptyPolicy(c.EmptyValues); err != nil {
		return err
	}

	if c.History < 0 {
		return ErrInvalidHistory
	}

	if _, err := c.Properties(); err != nil {
		return err
	}

	for idx, opt := range c.Options {
		if opt.Name == "" {
			return fmt.Errorf("%w: options[%d]", ErrMissingOptionKey, idx)
		}
	}

	if _, err := c.Bag(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	if c.DryRun || c.History > 0 {
		return nil
	}

	if c.Formatter == nil {
		return fmt.Errorf("%w: [formatter] is missing", ErrNoTool)
	} else if c.ImportSorter == nil {
		return fmt.Errorf("%w: [import-sorter] is missing", ErrNoTool)
	}

	return nil
}

// Properties parses the KEY=VALUE project properties.
func (c *Config) Properties() (map[string]string, error) {
	props := make(map[string]string, len(c.Project.Properties))

	for _, pair := range c.Project.Properties {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: '%s'", ErrInvalidProperty, pair)
		}

		props[key] = value
	}

	return props, nil
}

// ExprProject describes the project to the expression evaluator.
func (c *Config) ExprProject() (*expr.Project, error) {
	props, err := c.Properties()
	if err != nil {
		return nil, err
	}

	return &expr.Project{
		Root:            c.Project.Root,
		ID:              c.Project.ID,
		BuildDir:        c.Project.BuildDir,
		SourceDir:       c.Project.SourceDir,
		TestSourceDir:   c.Project.TestSourceDir,
		Encoding:        c.Project.Encoding,
		CompilerRelease: c.Project.CompilerRelease,
		Properties:      props,
		PropertiesFile:  c.Project.PropertiesFile,
	}, nil
}

// Bag returns the builtin option descriptors overlaid with the configured options.
func (c *Config) Bag() (*option.Bag, error) {
	descriptors := make([]option.Descriptor, len(c.Options))
	for i, opt := range c.Options {
		descriptors[i] = option.Descriptor{
			Name:    opt.Name,
			Value:   opt.Value,
			Default: opt.Default,
		}
	}

	return option.Builtins().Overlay(descriptors...) //nolint:wrapcheck
}

func FindUp(searchDir string, fileNames ...string) (path string, dir string, err error) {
	for _, dir := range eachDir(searchDir) {
		for _, f := range fileNames {
			path := filepath.Join(dir, f)
			if fileExists(path) {
				return path, dir, nil
			}
		}
	}

	return "", "", fmt.Errorf("could not find %s in %s", fileNames, searchDir)
}

func eachDir(path string) (paths []string) {
	path, err := filepath.Abs(path)
	if err != nil {
		return
	}

	paths = []string{path}

	if path == "/" {
		return
	}

	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == os.PathSeparator {
			path = path[:i]
			if path == "" {
				path = "/"
			}

			paths = append(paths, path)
		}
	}

	return
}

func fileExists(path string) bool {
	// Some broken filesystems like SSHFS return file information on stat() but
	// then cannot open the file. So we use os.Open.
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	// Next, check that the file is a regular file.
	fi, err := f.Stat()
	if err != nil {
		return false
	}

	return fi.Mode().IsRegular()
}
