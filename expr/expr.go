package expr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// ErrEvaluation is wrapped by every failure returned from Evaluator.Evaluate.
var ErrEvaluation = errors.New("failed to evaluate expression")

// Evaluator expands shell style expressions such as `${PROJECT_BUILD_DIR}/classes` against a fixed environment.
// Expressions are treated like the body of a here-document: parameter expansion and arithmetic are supported, quotes
// and globs are kept literally and command substitution is rejected.
type Evaluator struct {
	env    expand.Environ
	strict bool
}

// New creates an Evaluator. In strict mode, referencing an unset variable is an error rather than an empty string.
func New(env expand.Environ, strict bool) *Evaluator {
	return &Evaluator{env: env, strict: strict}
}

func (e *Evaluator) Evaluate(expression string) (string, error) {
	word, err := syntax.NewParser().Document(strings.NewReader(expression))
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrEvaluation, expression, err)
	}

	cfg := &expand.Config{
		Env:     e.env,
		NoUnset: e.strict,
	}

	value, err := expand.Document(cfg, word)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrEvaluation, expression, err)
	}

	return value, nil
}

// Project describes the project a run operates on. Its fields are exposed to expressions as environment variables.
type Project struct {
	Root            string
	ID              string
	BuildDir        string
	SourceDir       string
	TestSourceDir   string
	Encoding        string
	CompilerRelease string

	// Properties are additional variables, taking precedence over PropertiesFile and the process environment.
	Properties map[string]string
	// PropertiesFile is an optional dotenv file, relative to Root unless absolute.
	PropertiesFile string
}

// Variables returns the variables describing the project itself.
func (p *Project) Variables() map[string]string {
	return map[string]string{
		"PROJECT_ROOT":            p.Root,
		"PROJECT_ID":              p.ID,
		"PROJECT_BUILD_DIR":       p.resolve(p.BuildDir),
		"PROJECT_SOURCE_DIR":      p.resolve(p.SourceDir),
		"PROJECT_TEST_SOURCE_DIR": p.resolve(p.TestSourceDir),
		"SOURCE_ENCODING":         p.Encoding,
		"COMPILER_RELEASE":        p.CompilerRelease,
	}
}

func (p *Project) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(p.Root, path)
}

// Environ layers, in increasing precedence, base (usually os.Environ()), the properties file, Properties and the
// project variables.
func (p *Project) Environ(base []string) (expand.Environ, error) {
	pairs := append([]string{}, base...)

	if p.PropertiesFile != "" {
		path := p.resolve(p.PropertiesFile)

		props, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read properties file %s: %w", path, err)
		}

		if pairs, err = appendVariables(pairs, props); err != nil {
			return nil, fmt.Errorf("invalid properties file %s: %w", path, err)
		}
	}

	var err error

	if pairs, err = appendVariables(pairs, p.Properties); err != nil {
		return nil, fmt.Errorf("invalid project properties: %w", err)
	}

	if pairs, err = appendVariables(pairs, p.Variables()); err != nil {
		return nil, err
	}

	return expand.ListEnviron(pairs...), nil
}

// NewEvaluator is a convenience for building an Evaluator over the project's environment layered on the current
// process environment.
func (p *Project) NewEvaluator(strict bool) (*Evaluator, error) {
	env, err := p.Environ(os.Environ())
	if err != nil {
		return nil, err
	}

	return New(env, strict), nil
}

func appendVariables(pairs []string, vars map[string]string) ([]string, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if !syntax.ValidName(name) {
			return nil, fmt.Errorf("'%s' is not a valid variable name", name)
		}

		pairs = append(pairs, name+"="+vars[name])
	}

	return pairs, nil
}
