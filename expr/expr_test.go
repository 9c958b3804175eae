package expr_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/numtide/changefmt/expr"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/expand"
)

func TestEvaluate(t *testing.T) {
	as := require.New(t)

	env := expand.ListEnviron("FOO=foo", "EMPTY=")
	eval := expr.New(env, false)

	cases := map[string]string{
		"":                 "",
		"1.8":              "1.8",
		"*":                "*",
		`"quoted"`:         `"quoted"`,
		"${FOO}/bar":       "foo/bar",
		"$FOO-$FOO":        "foo-foo",
		"${MISSING}":       "",
		"${MISSING:-dflt}": "dflt",
		"${EMPTY:-dflt}":   "dflt",
		"$((1 + 2))":       "3",
	}

	for expression, expected := range cases {
		value, err := eval.Evaluate(expression)
		as.NoError(err, expression)
		as.Equal(expected, value, expression)
	}
}

func TestEvaluateFailures(t *testing.T) {
	as := require.New(t)

	env := expand.ListEnviron("FOO=foo")

	// command substitution is never allowed
	_, err := expr.New(env, false).Evaluate("$(echo hello)")
	as.ErrorIs(err, expr.ErrEvaluation)

	// unset variables are only an error in strict mode
	strict := expr.New(env, true)

	_, err = strict.Evaluate("${MISSING}")
	as.ErrorIs(err, expr.ErrEvaluation)

	value, err := strict.Evaluate("${FOO}")
	as.NoError(err)
	as.Equal("foo", value)

	// unterminated expansion
	_, err = expr.New(env, false).Evaluate("${FOO")
	as.ErrorIs(err, expr.ErrEvaluation)
}

func TestProjectEnviron(t *testing.T) {
	as := require.New(t)

	root := t.TempDir()

	as.NoError(os.WriteFile(filepath.Join(root, "build.env"), []byte("RELEASE=11\nVENDOR=acme\n"), 0o600))

	project := expr.Project{
		Root:            root,
		ID:              "my-app",
		BuildDir:        "target",
		SourceDir:       "src/main/java",
		TestSourceDir:   "/abs/test",
		Encoding:        "UTF-8",
		CompilerRelease: "17",
		Properties: map[string]string{
			"VENDOR": "override",
		},
		PropertiesFile: "build.env",
	}

	env, err := project.Environ([]string{"PROJECT_ID=shadowed", "HOME=/home/test"})
	as.NoError(err)

	eval := expr.New(env, true)

	check := func(expression string, expected string) {
		value, err := eval.Evaluate(expression)
		as.NoError(err, expression)
		as.Equal(expected, value, expression)
	}

	check("${PROJECT_ROOT}", root)
	check("${PROJECT_ID}", "my-app")
	check("${PROJECT_BUILD_DIR}", filepath.Join(root, "target"))
	check("${PROJECT_SOURCE_DIR}", filepath.Join(root, "src/main/java"))
	check("${PROJECT_TEST_SOURCE_DIR}", "/abs/test")
	check("${SOURCE_ENCODING}", "UTF-8")
	check("${COMPILER_RELEASE}", "17")
	check("${RELEASE}", "11")
	check("${VENDOR}", "override")
	check("${HOME}", "/home/test")
}

func TestProjectEnvironErrors(t *testing.T) {
	as := require.New(t)

	project := expr.Project{Root: t.TempDir(), PropertiesFile: "missing.env"}

	_, err := project.Environ(nil)
	as.ErrorContains(err, "failed to read properties file")

	project = expr.Project{Root: t.TempDir(), Properties: map[string]string{"project.basedir": "x"}}

	_, err = project.Environ(nil)
	as.ErrorContains(err, "'project.basedir' is not a valid variable name")
}
