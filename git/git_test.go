package git_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/numtide/changefmt/changes"
	"github.com/numtide/changefmt/git"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root string, path string, contents string) {
	t.Helper()

	path = filepath.Join(root, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func commitAll(t *testing.T, repo *gogit.Repository, msg string) {
	t.Helper()

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddGlob("."))

	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func extract(t *testing.T, artifact string) changes.ChangeSet {
	t.Helper()

	f, err := os.Open(artifact)
	require.NoError(t, err)

	defer f.Close()

	set, err := changes.Extract(f)
	require.NoError(t, err)

	return set.ChangeSet()
}

func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()

	root := t.TempDir()

	repo, err := gogit.PlainInit(root, false)
	require.NoError(t, err)

	writeFile(t, root, "pom.xml", "<project/>\n")
	writeFile(t, root, "src/main/java/org/example/Foo.java", "class Foo {}\n")
	writeFile(t, root, "src/test/java/org/example/FooTest.java", "class FooTest {}\n")
	commitAll(t, repo, "initial commit")

	return root, repo
}

func TestIsInsideWorktree(t *testing.T) {
	as := require.New(t)

	root, _ := initRepo(t)

	inside, err := git.IsInsideWorktree(root)
	as.NoError(err)
	as.True(inside)

	inside, err = git.IsInsideWorktree(t.TempDir())
	as.NoError(err)
	as.False(inside)
}

func TestCommitsProducer(t *testing.T) {
	as := require.New(t)

	root, repo := initRepo(t)

	writeFile(t, root, "src/main/java/org/example/Foo.java", "class Foo { }\n")
	writeFile(t, root, "src/main/resources/app.properties", "a=b\n")
	commitAll(t, repo, "second commit")

	artifact := filepath.Join(t.TempDir(), "app.diff")

	as.NoError(git.NewCommitsProducer(root, "").Produce(context.Background(), artifact))
	as.ElementsMatch(changes.ChangeSet{"org/example/Foo.java", "app.properties"}, extract(t, artifact))

	// uncommitted changes are not considered
	writeFile(t, root, "pom.xml", "<project></project>\n")
	as.NoError(git.NewCommitsProducer(root, "HEAD").Produce(context.Background(), artifact))
	as.Empty(extract(t, artifact))

	// unknown revision
	err := git.NewCommitsProducer(root, "does-not-exist").Produce(context.Background(), artifact)
	as.ErrorContains(err, "failed to resolve revision does-not-exist")
}

func TestDiffProducer(t *testing.T) {
	as := require.New(t)

	root, _ := initRepo(t)

	writeFile(t, root, "src/test/java/org/example/FooTest.java", "class FooTest { }\n")
	writeFile(t, root, "pom.xml", "<project></project>\n")

	artifact := filepath.Join(root, "app.diff")

	as.NoError(git.NewDiffProducer(root, "").Produce(context.Background(), artifact))

	contents, err := os.ReadFile(artifact)
	as.NoError(err)
	as.True(strings.HasPrefix(string(contents), "diff --git a/"))

	refs := extract(t, artifact)
	as.ElementsMatch(changes.ChangeSet{"pom.xml", "org/example/FooTest.java"}, refs)

	err = git.NewDiffProducer(root, "does-not-exist").Produce(context.Background(), artifact)
	as.Error(err)

	_, err = os.Stat(artifact)
	as.ErrorIs(err, os.ErrNotExist)
}
