package scm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/numtide/changefmt/changes"
	"github.com/numtide/changefmt/git"
	"github.com/numtide/changefmt/internal/capture"
	"github.com/numtide/changefmt/jujutsu"
	"mvdan.cc/sh/v3/shell"
)

//nolint:recvcheck
type Type int

const (
	Auto Type = iota
	Git
	GitCommits
	Jujutsu
	Command
)

var (
	ErrUnknownType = errors.New("unknown diff type")
	ErrNoCommand   = errors.New("diff type 'command' requires a command")

	typeNames = map[Type]string{
		Auto:       "auto",
		Git:        "git",
		GitCommits: "git-commits",
		Jujutsu:    "jujutsu",
		Command:    "command",
	}
)

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("Type(%d)", int(t))
}

// TypeString parses the name of a Type.
func TypeString(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}

	return Auto, fmt.Errorf("%w: '%s', must be one of <auto|git|git-commits|jujutsu|command>", ErrUnknownType, s)
}

// Options configure the Producer returned by New.
type Options struct {
	// Baseline is the revision changes are measured against. Each type has its own default.
	Baseline string
	// Command is a shell-style command line whose stdout is a unified diff. Only used by the Command type.
	Command string
	// Env is used to expand variables within Command.
	Env func(string) string
}

// New creates the diff producer for the given type, rooted at the project root.
//
//nolint:ireturn
func New(t Type, root string, opts Options) (changes.Producer, error) {
	switch t {
	case Auto:
		return detect(root, opts)
	case Git:
		return git.NewDiffProducer(root, opts.Baseline), nil
	case GitCommits:
		return git.NewCommitsProducer(root, opts.Baseline), nil
	case Jujutsu:
		return jujutsu.NewDiffProducer(root, opts.Baseline), nil
	case Command:
		return NewCommandProducer(root, opts.Command, opts.Env)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownType, t)
	}
}

//nolint:ireturn
func detect(root string, opts Options) (changes.Producer, error) {
	l := log.WithPrefix("scm")

	// try git first and jujutsu second, since a jujutsu repository is often colocated with a git one
	if inside, err := git.IsInsideWorktree(root); err == nil && inside {
		l.Debugf("detected git worktree at %s", root)
		return git.NewDiffProducer(root, opts.Baseline), nil
	}

	if inside, err := jujutsu.IsInsideWorktree(root); err == nil && inside {
		l.Debugf("detected jujutsu workspace at %s", root)
		return jujutsu.NewDiffProducer(root, opts.Baseline), nil
	}

	return Unavailable{Reason: fmt.Sprintf("%s is neither a git worktree nor a jujutsu workspace", root)}, nil
}

// Unavailable is a Producer which always fails. It stands in when no diff can be produced, so that a run
// degrades to an empty change set instead of failing.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Produce(_ context.Context, _ string) error {
	return errors.New(u.Reason)
}

// CommandProducer runs an arbitrary command and captures its stdout as the diff.
type CommandProducer struct {
	root string
	args []string
	log  *log.Logger
}

func NewCommandProducer(root string, command string, env func(string) string) (*CommandProducer, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrNoCommand
	}

	args, err := shell.Fields(command, env)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff command %q: %w", command, err)
	}

	if len(args) == 0 {
		return nil, ErrNoCommand
	}

	return &CommandProducer{
		root: root,
		args: args,
		log:  log.WithPrefix("scm[command]"),
	}, nil
}

// Args returns the parsed command line.
func (c *CommandProducer) Args() []string {
	return append([]string{}, c.args...)
}

func (c *CommandProducer) Produce(ctx context.Context, artifact string) error {
	return capture.ToFile(ctx, c.log, c.root, artifact, c.args[0], c.args[1:]...)
}
