package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/numtide/changefmt/config"
	"github.com/numtide/changefmt/option"
	"github.com/numtide/changefmt/scm"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
empty-values = "keep"
strict = true

[project]
id = "billing"
compiler-release = "17"
properties = ["VENDOR=acme", "LICENSE_YEAR=2024"]

[diff]
type = "git-commits"
baseline = "main"
excludes = ["**/generated/**"]

[formatter]
command = "java-formatter"
options = ["--replace"]

[import-sorter]
command = "impsort"
render = "xml"
options = ["--config", "{{ .ConfigFile }}"]

[[options]]
name = "lineEnding"
value = "LF"

[[options]]
name = "customFlag"
default = "${VENDOR}"
`

func newViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()

	as := require.New(t)

	v, err := config.NewViper()
	as.NoError(err)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.SetFlags(flags)
	as.NoError(flags.Parse(args))
	as.NoError(config.BindFlags(v, flags))

	return v
}

func readConfig(t *testing.T, contents string, args ...string) (*config.Config, error) {
	t.Helper()

	as := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "changefmt.toml")
	as.NoError(os.WriteFile(path, []byte(contents), 0o600))

	v := newViper(t, args...)
	v.SetConfigFile(path)
	as.NoError(v.ReadInConfig())

	return config.FromViper(v)
}

func TestFromViper(t *testing.T) {
	as := require.New(t)

	cfg, err := readConfig(t, sampleConfig)
	as.NoError(err)

	as.Equal("keep", cfg.EmptyValues)
	as.True(cfg.Strict)
	as.False(cfg.DryRun)

	// project root defaults to the directory containing the config file
	as.True(filepath.IsAbs(cfg.Project.Root))
	as.Equal("billing", cfg.Project.ID)
	as.Equal("target", cfg.Project.BuildDir)
	as.Equal("src/main/java", cfg.Project.SourceDir)
	as.Equal("src/test/java", cfg.Project.TestSourceDir)
	as.Equal("UTF-8", cfg.Project.Encoding)
	as.Equal("17", cfg.Project.CompilerRelease)

	props, err := cfg.Properties()
	as.NoError(err)
	as.Equal(map[string]string{"VENDOR": "acme", "LICENSE_YEAR": "2024"}, props)

	as.Equal("git-commits", cfg.Diff.Type)
	as.Equal("main", cfg.Diff.Baseline)
	as.Equal([]string{"**/generated/**"}, cfg.Diff.Excludes)
	as.False(cfg.Diff.KeepArtifact)

	as.NotNil(cfg.Formatter)
	as.Equal("java-formatter", cfg.Formatter.Command)
	as.Equal([]string{"--replace"}, cfg.Formatter.Options)

	as.NotNil(cfg.ImportSorter)
	as.Equal("impsort", cfg.ImportSorter.Command)
	as.Equal("xml", cfg.ImportSorter.Render)

	as.Len(cfg.Options, 2)
	as.Equal("lineEnding", cfg.Options[0].Name)
	as.NotNil(cfg.Options[0].Value)
	as.Equal("LF", *cfg.Options[0].Value)
	as.Nil(cfg.Options[0].Default)
	as.Equal("customFlag", cfg.Options[1].Name)
	as.Nil(cfg.Options[1].Value)
	as.Equal("${VENDOR}", *cfg.Options[1].Default)
}

func TestProjectIDDefault(t *testing.T) {
	as := require.New(t)

	root := t.TempDir()

	cfg, err := readConfig(t, sampleConfig, "--project-root", root)
	as.NoError(err)

	// the config file still names the project
	as.Equal("billing", cfg.Project.ID)
	as.Equal(root, cfg.Project.Root)

	cfg, err = readConfig(t, `
[formatter]
command = "fmt"

[import-sorter]
command = "sort"
`, "--project-root", root)
	as.NoError(err)
	as.Equal(filepath.Base(root), cfg.Project.ID)
	as.Equal("auto", cfg.Diff.Type)
	as.Equal("omit", cfg.EmptyValues)
}

func TestFlagsOverrideConfig(t *testing.T) {
	as := require.New(t)

	cfg, err := readConfig(t, sampleConfig,
		"--diff-type", "command",
		"--baseline", "release",
		"--keep-diff",
		"--empty-values", "omit",
		"-vv",
	)
	as.NoError(err)

	as.Equal("command", cfg.Diff.Type)
	as.Equal("release", cfg.Diff.Baseline)
	as.True(cfg.Diff.KeepArtifact)
	as.Equal("omit", cfg.EmptyValues)
	as.Equal(uint8(2), cfg.Verbose)
}

func TestDiffTableSurvivesFlags(t *testing.T) {
	as := require.New(t)

	const diffTable = `
[diff]
command = "cat changes.patch"
excludes = ["*.md"]

[formatter]
command = "fmt"

[import-sorter]
command = "sort"
`

	// the diff type defaults to auto when the table leaves it out
	cfg, err := readConfig(t, diffTable)
	as.NoError(err)
	as.Equal("auto", cfg.Diff.Type)
	as.Equal("cat changes.patch", cfg.Diff.Command)
	as.Equal([]string{"*.md"}, cfg.Diff.Excludes)

	// overriding the type keeps the rest of the table
	cfg, err = readConfig(t, diffTable, "--diff-type", "command", "--keep-diff")
	as.NoError(err)
	as.Equal("command", cfg.Diff.Type)
	as.True(cfg.Diff.KeepArtifact)
	as.Equal("cat changes.patch", cfg.Diff.Command)
	as.Equal([]string{"*.md"}, cfg.Diff.Excludes)

	t.Setenv("CHANGEFMT_DIFF_TYPE", "git")

	cfg, err = readConfig(t, diffTable)
	as.NoError(err)
	as.Equal("git", cfg.Diff.Type)
	as.Equal("cat changes.patch", cfg.Diff.Command)
}

func TestEnvOverridesConfig(t *testing.T) {
	as := require.New(t)

	t.Setenv("CHANGEFMT_DIFF_TYPE", "jujutsu")
	t.Setenv("CHANGEFMT_PROJECT_ID", "from-env")
	t.Setenv("CHANGEFMT_STRICT", "false")

	cfg, err := readConfig(t, sampleConfig)
	as.NoError(err)

	as.Equal("jujutsu", cfg.Diff.Type)
	as.Equal("from-env", cfg.Project.ID)
	as.False(cfg.Strict)
}

func TestDryRunNotAllowedInConfig(t *testing.T) {
	as := require.New(t)

	cfg, err := readConfig(t, "dry-run = true\n"+sampleConfig)
	as.NoError(err)
	as.False(cfg.DryRun)

	cfg, err = readConfig(t, sampleConfig, "--dry-run")
	as.NoError(err)
	as.True(cfg.DryRun)
}

func TestValidation(t *testing.T) {
	as := require.New(t)

	_, err := readConfig(t, sampleConfig, "--diff-type", "svn")
	as.ErrorIs(err, scm.ErrUnknownType)

	_, err = readConfig(t, sampleConfig, "--empty-values", "drop")
	as.ErrorIs(err, option.ErrInvalidPolicy)

	_, err = readConfig(t, `
[project]
properties = ["NOPE"]
`, "--dry-run")
	as.ErrorIs(err, config.ErrInvalidProperty)

	_, err = readConfig(t, `
[[options]]
name = "lineEnding"

[[options]]
name = "lineEnding"
`, "--dry-run")
	as.ErrorIs(err, option.ErrDuplicateOption)

	_, err = readConfig(t, `
[[options]]
value = "x"
`, "--dry-run")
	as.ErrorIs(err, config.ErrMissingOptionKey)

	// both tools are required unless this is a dry run
	_, err = readConfig(t, `
[formatter]
command = "fmt"
`)
	as.ErrorIs(err, config.ErrNoTool)

	_, err = readConfig(t, `
[formatter]
command = "fmt"
`, "--dry-run")
	as.NoError(err)
}

func TestBag(t *testing.T) {
	as := require.New(t)

	cfg, err := readConfig(t, sampleConfig)
	as.NoError(err)

	bag, err := cfg.Bag()
	as.NoError(err)

	lineEnding, ok := bag.Get("lineEnding")
	as.True(ok)

	expression, ok := lineEnding.Expression()
	as.True(ok)
	as.Equal("LF", expression)

	custom, ok := bag.Get("customFlag")
	as.True(ok)

	expression, ok = custom.Expression()
	as.True(ok)
	as.Equal("${VENDOR}", expression)

	// builtins survive the overlay
	_, ok = bag.Get("configFile")
	as.True(ok)
}

func TestExprProject(t *testing.T) {
	as := require.New(t)

	cfg, err := readConfig(t, sampleConfig)
	as.NoError(err)

	project, err := cfg.ExprProject()
	as.NoError(err)

	vars := project.Variables()
	as.Equal(cfg.Project.Root, vars["PROJECT_ROOT"])
	as.Equal("billing", vars["PROJECT_ID"])
	as.Equal(filepath.Join(cfg.Project.Root, "target"), vars["PROJECT_BUILD_DIR"])
	as.Equal("17", vars["COMPILER_RELEASE"])
}

func TestFindUp(t *testing.T) {
	as := require.New(t)

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	as.NoError(os.MkdirAll(nested, 0o755))
	as.NoError(os.WriteFile(filepath.Join(root, ".changefmt.toml"), nil, 0o600))

	path, dir, err := config.FindUp(nested, "changefmt.toml", ".changefmt.toml")
	as.NoError(err)
	as.Equal(filepath.Join(root, ".changefmt.toml"), path)
	as.Equal(root, dir)

	_, _, err = config.FindUp(nested, "missing.toml")
	as.Error(err)
}
