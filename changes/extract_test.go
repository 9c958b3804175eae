package changes_test

import (
	"strings"
	"testing"

	"github.com/numtide/changefmt/changes"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/src/main/java/org/example/Foo.java b/src/main/java/org/example/Foo.java
index 3b18e51..a4c5c3a 100644
--- a/src/main/java/org/example/Foo.java
+++ b/src/main/java/org/example/Foo.java
@@ -1,3 +1,3 @@
 package org.example;
-class Foo {}
+class Foo { }
diff --git a/src/test/resources/z.txt b/src/test/resources/z.txt
new file mode 100644
--- /dev/null
+++ b/src/test/resources/z.txt
@@ -0,0 +1 @@
+hello
diff --git a/README.md b/README.md
--- a/README.md	2024-01-01 00:00:00
+++ b/README.md	2024-01-02 00:00:00
@@ -1 +1 @@
--- a/not/a/header/because/it/is/removed/content
`

func TestParseLine(t *testing.T) {
	as := require.New(t)

	cases := []struct {
		line string
		ref  changes.FileRef
		ok   bool
	}{
		{"--- a/src/main/java/x/Y.java", "x/Y.java", true},
		{"diff --git a/src/test/resources/z.txt b/src/test/resources/z.txt", "z.txt", true},
		{"diff --git a/src/main/resources/app.properties b/src/main/resources/app.properties", "app.properties", true},
		{"--- a/src/test/java/x/YTest.java\t2024-01-01", "x/YTest.java", true},
		{"--- a/pom.xml", "pom.xml", true},
		// only a leading source root is stripped
		{"--- a/module/src/main/java/x/Y.java", "module/src/main/java/x/Y.java", true},
		// only a single source root is stripped
		{"--- a/src/main/java/src/test/java/x/Y.java", "src/test/java/x/Y.java", true},
		// no whitespace, the remainder is the path
		{"diff --git a/lonely.txt", "lonely.txt", true},
		{"+++ b/src/main/java/x/Y.java", "", false},
		{"--- /dev/null", "", false},
		{"index 3b18e51..a4c5c3a 100644", "", false},
		{" --- a/indented.txt", "", false},
		{"--- a/", "", false},
		{"--- a/src/main/java/", "", false},
		{"", "", false},
	}

	for _, c := range cases {
		ref, ok := changes.ParseLine(c.line)
		as.Equal(c.ok, ok, c.line)
		as.Equal(c.ref, ref, c.line)
	}
}

func TestExtract(t *testing.T) {
	as := require.New(t)

	set, err := changes.Extract(strings.NewReader(sampleDiff))
	as.NoError(err)

	// the `--- a/...` line inside the README hunk is indistinguishable from a header and is picked up too
	as.Equal(changes.ChangeSet{
		"org/example/Foo.java",
		"z.txt",
		"README.md",
		"not/a/header/because/it/is/removed/content",
	}, set.ChangeSet())
}

func TestExtractInvariants(t *testing.T) {
	as := require.New(t)

	diff := strings.Join([]string{
		"diff --git a/src/main/java/A.java b/src/main/java/A.java",
		"--- a/src/main/java/A.java",
		"diff --git a/src/main/resources/B.xml b/src/main/resources/B.xml",
		"--- a/src/main/resources/B.xml",
		"diff --git a/src/test/java/C.java b/src/test/java/C.java",
		"--- a/src/test/java/C.java",
		"diff --git a/src/test/resources/D.txt b/src/test/resources/D.txt",
		"--- a/src/test/resources/D.txt",
		"diff --git a/src/main/java/A.java b/src/main/java/A.java",
	}, "\r\n")

	set, err := changes.Extract(strings.NewReader(diff))
	as.NoError(err)

	refs := set.ChangeSet()
	as.Equal(changes.ChangeSet{"A.java", "B.xml", "C.java", "D.txt"}, refs)

	seen := make(map[changes.FileRef]bool)
	for _, ref := range refs {
		as.False(seen[ref], "duplicate ref %s", ref)
		seen[ref] = true

		for _, root := range []string{"src/main/java/", "src/main/resources/", "src/test/java/", "src/test/resources/"} {
			as.False(strings.HasPrefix(ref.String(), root), "ref %s still has prefix %s", ref, root)
		}
	}
}

func TestExtractNoHeaders(t *testing.T) {
	as := require.New(t)

	set, err := changes.Extract(strings.NewReader("nothing to see here\n+++ b/foo\n"))
	as.NoError(err)
	as.Equal(0, set.Len())
	as.Empty(set.ChangeSet())

	set, err = changes.Extract(strings.NewReader(""))
	as.NoError(err)
	as.Equal(0, set.Len())
}

func TestSet(t *testing.T) {
	as := require.New(t)

	set := changes.NewSet("b", "a", "b")
	as.Equal(2, set.Len())
	as.True(set.Contains("a"))
	as.False(set.Contains("c"))
	as.False(set.Add("a"))
	as.True(set.Add("c"))

	refs := set.ChangeSet()
	as.Equal(changes.ChangeSet{"b", "a", "c"}, refs)

	// the returned change set is a copy
	refs[0] = "z"
	as.Equal(changes.ChangeSet{"b", "a", "c"}, set.ChangeSet())
}
