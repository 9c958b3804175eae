package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/numtide/changefmt/internal/capture"
)

const (
	// DefaultBaseline compares the working tree, staged changes included, with the last commit.
	DefaultBaseline = "HEAD"
	// DefaultCommitsBaseline compares the last commit with its parent.
	DefaultCommitsBaseline = "HEAD~1"
)

func IsInsideWorktree(path string) (bool, error) {
	// check if the root is a git repository
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = path

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(string(exitErr.Stderr), "not a git repository") {
			return false, nil
		}

		return false, fmt.Errorf("failed to check if %s is a git repository: %w", path, err)
	}

	if strings.Trim(string(out), "\n") != "true" {
		// not a git repo
		return false, nil
	}

	// is a git repo
	return true, nil
}

// DiffProducer writes the output of `git diff` between a baseline and the working tree.
type DiffProducer struct {
	root     string
	baseline string
	log      *log.Logger
}

func NewDiffProducer(root string, baseline string) *DiffProducer {
	if baseline == "" {
		baseline = DefaultBaseline
	}

	return &DiffProducer{
		root:     root,
		baseline: baseline,
		log:      log.WithPrefix("scm[git]"),
	}
}

func (d *DiffProducer) Produce(ctx context.Context, artifact string) error {
	return capture.ToFile(ctx, d.log, d.root, artifact,
		"git", "diff",
		"--no-color",
		"--no-ext-diff",
		// guard against diff.noprefix or diff.mnemonicPrefix in the user's config
		"--src-prefix=a/",
		"--dst-prefix=b/",
		d.baseline,
		"--",
	)
}

// CommitsProducer compares two commits in process, without requiring a git binary.
// Uncommitted changes are not considered.
type CommitsProducer struct {
	root     string
	baseline string
	target   string
	log      *log.Logger
}

func NewCommitsProducer(root string, baseline string) *CommitsProducer {
	if baseline == "" {
		baseline = DefaultCommitsBaseline
	}

	return &CommitsProducer{
		root:     root,
		baseline: baseline,
		target:   "HEAD",
		log:      log.WithPrefix("scm[git-commits]"),
	}
}

func (c *CommitsProducer) Produce(ctx context.Context, artifact string) error {
	repo, err := gogit.PlainOpenWithOptions(c.root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("failed to open git repository: %w", err)
	}

	from, err := c.commit(repo, c.baseline)
	if err != nil {
		return err
	}

	to, err := c.commit(repo, c.target)
	if err != nil {
		return err
	}

	c.log.Debugf("comparing %s (%s) with %s (%s)", c.baseline, from.Hash, c.target, to.Hash)

	patch, err := from.PatchContext(ctx, to)
	if err != nil {
		return fmt.Errorf("failed to compute patch between %s and %s: %w", c.baseline, c.target, err)
	}

	file, err := os.Create(artifact)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", artifact, err)
	}

	if err = patch.Encode(file); err != nil {
		_ = file.Close()
		_ = os.Remove(artifact)

		return fmt.Errorf("failed to write patch to %s: %w", artifact, err)
	}

	return file.Close()
}

func (c *CommitsProducer) commit(repo *gogit.Repository, revision string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %s: %w", revision, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", revision, err)
	}

	return commit, nil
}
