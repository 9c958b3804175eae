package changes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/gobwas/glob"
	"github.com/numtide/changefmt/stats"
)

// ArtifactExt is appended to the project id to name the diff artifact.
const ArtifactExt = ".diff"

// Producer materialises a unified diff at the given absolute path.
type Producer interface {
	Produce(ctx context.Context, artifact string) error
}

// ArtifactName returns the file name of the diff artifact for a project.
func ArtifactName(projectID string) string {
	return projectID + ArtifactExt
}

// Resolver computes the ChangeSet for a run by asking a Producer for a diff and extracting the paths it touches.
type Resolver struct {
	fs       billy.Filesystem
	name     string
	producer Producer
	excludes []glob.Glob
	keep     bool

	stats *stats.Stats
	log   *log.Logger
}

// NewResolver creates a Resolver whose artifact lives at the root of fs, which should be the project root.
func NewResolver(
	fs billy.Filesystem,
	projectID string,
	producer Producer,
	excludes []string,
	keepArtifact bool,
	statz *stats.Stats,
) (*Resolver, error) {
	if projectID == "" {
		return nil, errors.New("project id must not be empty")
	}

	globs, err := CompileGlobs(excludes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile change set excludes: %w", err)
	}

	return &Resolver{
		fs:       fs,
		name:     ArtifactName(projectID),
		producer: producer,
		excludes: globs,
		keep:     keepArtifact,
		stats:    statz,
		log:      log.WithPrefix("changes"),
	}, nil
}

// ArtifactPath is the absolute path the producer is asked to write to.
func (r *Resolver) ArtifactPath() string {
	return filepath.Join(r.fs.Root(), r.name)
}

// Resolve produces the ChangeSet for this run.
// A diff which cannot be produced or read is logged and results in an empty ChangeSet. Only a cancelled context is
// returned as an error.
func (r *Resolver) Resolve(ctx context.Context) (ChangeSet, error) {
	artifact := r.ArtifactPath()

	r.log.Infof("producing diff at %s", artifact)

	if err := r.producer.Produce(ctx, artifact); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("diff production was interrupted: %w", ctxErr)
		}

		r.log.Warnf("failed to produce diff, no changes will be formatted: %v", err)

		return ChangeSet{}, nil
	}

	set, err := r.read()
	if err != nil {
		r.log.Warnf("failed to read diff, no changes will be formatted: %v", err)
		return ChangeSet{}, nil
	}

	result := make(ChangeSet, 0, set.Len())

	for _, ref := range set.ChangeSet() {
		if PathMatches(ref.String(), r.excludes) {
			r.log.Debugf("excluding %s", ref)
			r.count(stats.Excluded)

			continue
		}

		result = append(result, ref)
	}

	r.log.Infof("resolved %d changed file(s)", len(result))

	return result, nil
}

func (r *Resolver) read() (*Set, error) {
	r.log.Debugf("reading file %s", r.name)

	file, err := r.fs.Open(r.name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", r.name, err)
	}

	set, err := Extract(file)

	if closeErr := file.Close(); closeErr != nil {
		r.log.Debugf("failed to close %s: %v", r.name, closeErr)
	}

	if err != nil {
		return nil, err
	}

	if r.stats != nil {
		r.stats.Add(stats.Changed, set.Len())
	}

	if !r.keep {
		if err := r.fs.Remove(r.name); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warnf("failed to remove %s: %v", r.name, err)
		}
	}

	return set, nil
}

func (r *Resolver) count(t stats.Type) {
	if r.stats != nil {
		r.stats.Add(t, 1)
	}
}
