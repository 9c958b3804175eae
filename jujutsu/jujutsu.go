package jujutsu

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/numtide/changefmt/internal/capture"
)

// DefaultBaseline compares the working copy commit with its parent.
const DefaultBaseline = "@-"

func IsInsideWorktree(path string) (bool, error) {
	// check if the root is a jujutsu repository
	cmd := exec.Command("jj", "workspace", "root")
	cmd.Dir = path

	if _, err := cmd.Output(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(string(exitErr.Stderr), "There is no jj repo in") {
			return false, nil
		}

		return false, fmt.Errorf("failed to check if %s is a jujutsu repository: %w", path, err)
	}
	// is a jujutsu repo
	return true, nil
}

// DiffProducer writes the output of `jj diff --git` between a baseline revision and the working copy.
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
		log:      log.WithPrefix("scm[jujutsu]"),
	}
}

func (d *DiffProducer) Produce(ctx context.Context, artifact string) error {
	return capture.ToFile(ctx, d.log, d.root, artifact,
		"jj", "--no-pager", "--color=never",
		"diff", "--git",
		"--from", d.baseline,
		"--to", "@",
	)
}
