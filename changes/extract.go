package changes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
)

// fileHeaders are the unified diff line prefixes which introduce a file path.
var fileHeaders = []string{
	"--- a/",
	"diff --git a/",
}

// sourceRoots are stripped from the front of a path so that it becomes relative to the source directory which
// contains it. They are checked in order and at most one is removed.
var sourceRoots = []string{
	"src/main/java/",
	"src/main/resources/",
	"src/test/java/",
	"src/test/resources/",
}

// ParseLine returns the FileRef introduced by a file header line of a unified diff.
// The second return value is false for any other line.
func ParseLine(line string) (FileRef, bool) {
	for _, header := range fileHeaders {
		if !strings.HasPrefix(line, header) {
			continue
		}

		candidate := line[len(header):]

		// the path ends at the first whitespace, which drops the `b/...` token of a git header and any metadata
		// following it. Without whitespace, we take the remainder of the line as-is.
		if idx := strings.IndexFunc(candidate, unicode.IsSpace); idx >= 0 {
			candidate = candidate[:idx]
		}

		if candidate = stripSourceRoot(candidate); candidate == "" {
			return "", false
		}

		return NewFileRef(candidate), true
	}

	return "", false
}

func stripSourceRoot(path string) string {
	for _, root := range sourceRoots {
		if strings.HasPrefix(path, root) {
			return path[len(root):]
		}
	}

	return path
}

// Extract reads unified diff text from r and collects every file it touches.
func Extract(r io.Reader) (*Set, error) {
	l := log.WithPrefix("changes")

	set := NewSet()
	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			if ref, ok := ParseLine(line); ok {
				if set.Add(ref) {
					l.Debugf("found changed file: %s", ref)
				}
			}
		}

		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to read diff: %w", err)
		}
	}

	return set, nil
}
