package changes

import (
	"path/filepath"
	"strings"
)

// FileRef is a repository-relative path. It always uses '/' as its separator, regardless of platform.
type FileRef string

// NewFileRef normalises path into a FileRef, converting any platform specific separators.
func NewFileRef(path string) FileRef {
	return FileRef(filepath.ToSlash(path))
}

func (f FileRef) String() string {
	return string(f)
}

// OSPath returns the path using the platform's separator, which is what downstream tools expect.
func (f FileRef) OSPath() string {
	return filepath.FromSlash(string(f))
}

// ChangeSet is the ordered, duplicate free list of files a run is restricted to.
// It is built once per run and must not be modified afterwards.
type ChangeSet []FileRef

// Strings returns the change set rendered with platform separators.
func (c ChangeSet) Strings() []string {
	result := make([]string, len(c))
	for i, ref := range c {
		result[i] = ref.OSPath()
	}

	return result
}

func (c ChangeSet) String() string {
	return "[" + strings.Join(c.Strings(), " ") + "]"
}

// Set accumulates FileRefs, discarding duplicates while remembering the order in which they were first added.
type Set struct {
	refs  []FileRef
	index map[FileRef]struct{}
}

func NewSet(refs ...FileRef) *Set {
	s := &Set{index: make(map[FileRef]struct{})}
	for _, ref := range refs {
		s.Add(ref)
	}

	return s
}

// Add inserts ref, returning false if it was already present.
func (s *Set) Add(ref FileRef) bool {
	if _, ok := s.index[ref]; ok {
		return false
	}

	s.index[ref] = struct{}{}
	s.refs = append(s.refs, ref)

	return true
}

func (s *Set) Contains(ref FileRef) bool {
	_, ok := s.index[ref]
	return ok
}

func (s *Set) Len() int {
	return len(s.refs)
}

// ChangeSet returns a copy of the accumulated refs in discovery order.
func (s *Set) ChangeSet() ChangeSet {
	result := make(ChangeSet, len(s.refs))
	copy(result, s.refs)

	return result
}
