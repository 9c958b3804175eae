package option

import (
	"fmt"
	"strings"

	"github.com/numtide/changefmt/changes"
)

// Entry is a single configuration value handed to a tool. The inclusion entry carries the change set instead of a
// scalar value.
type Entry struct {
	Name  string
	Value string

	inclusion bool
	includes  changes.ChangeSet
}

// IncludesEntry renders a change set as an inclusion-list entry. It is never nil, even for an empty change set.
func IncludesEntry(name string, changeSet changes.ChangeSet) Entry {
	includes := make(changes.ChangeSet, len(changeSet))
	copy(includes, changeSet)

	return Entry{
		Name:      name,
		inclusion: true,
		includes:  includes,
	}
}

func (e Entry) IsInclusion() bool {
	return e.inclusion
}

// Includes returns the paths of an inclusion entry using the platform separator.
func (e Entry) Includes() []string {
	return e.includes.Strings()
}

func (e Entry) String() string {
	if e.inclusion {
		return fmt.Sprintf("%s=%v", e.Name, e.includes)
	}

	return fmt.Sprintf("%s=%s", e.Name, e.Value)
}

// Set is the ordered configuration handed to a single tool invocation.
type Set []Entry

func (s Set) Lookup(name string) (Entry, bool) {
	for _, entry := range s {
		if entry.Name == name {
			return entry, true
		}
	}

	return Entry{}, false
}

func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, entry := range s {
		names[i] = entry.Name
	}

	return names
}

func (s Set) String() string {
	parts := make([]string, len(s))
	for i, entry := range s {
		parts[i] = entry.String()
	}

	return strings.Join(parts, ", ")
}
