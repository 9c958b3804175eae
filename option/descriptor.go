package option

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrDuplicateOption = errors.New("option declared more than once")

// Descriptor declares how to obtain the value of one option. Value and Default are expressions which are evaluated
// against the run context; either may be absent.
type Descriptor struct {
	Name    string
	Value   *string
	Default *string
}

// Expression returns Value, or Default if Value is blank. The second return value is false if neither is available.
func (d Descriptor) Expression() (string, bool) {
	if d.Value != nil && strings.TrimSpace(*d.Value) != "" {
		return *d.Value, true
	}

	if d.Default != nil {
		return *d.Default, true
	}

	return "", false
}

func (d Descriptor) String() string {
	show := func(s *string) string {
		if s == nil {
			return "<none>"
		}

		return fmt.Sprintf("%q", *s)
	}

	return fmt.Sprintf("%s(value=%s, default=%s)", d.Name, show(d.Value), show(d.Default))
}

// Bag is the set of declared option descriptors available to a run, indexed by name.
type Bag struct {
	descriptors map[string]Descriptor
}

// NewBag creates a Bag, rejecting descriptors which share a name.
func NewBag(descriptors ...Descriptor) (*Bag, error) {
	b := &Bag{descriptors: make(map[string]Descriptor, len(descriptors))}

	for _, d := range descriptors {
		if _, ok := b.descriptors[d.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOption, d.Name)
		}

		b.descriptors[d.Name] = d
	}

	return b, nil
}

// Overlay returns a new Bag where each override replaces the Value of the descriptor with the same name, and its
// Default too if the override declares one. Overrides for unknown names are added as they are.
func (b *Bag) Overlay(overrides ...Descriptor) (*Bag, error) {
	if _, err := NewBag(overrides...); err != nil {
		return nil, err
	}

	result := &Bag{descriptors: make(map[string]Descriptor, len(b.descriptors)+len(overrides))}
	for name, d := range b.descriptors {
		result.descriptors[name] = d
	}

	for _, override := range overrides {
		merged, ok := result.descriptors[override.Name]
		if !ok {
			result.descriptors[override.Name] = override
			continue
		}

		merged.Value = override.Value
		if override.Default != nil {
			merged.Default = override.Default
		}

		result.descriptors[override.Name] = merged
	}

	return result, nil
}

func (b *Bag) Get(name string) (Descriptor, bool) {
	d, ok := b.descriptors[name]
	return d, ok
}

func (b *Bag) Len() int {
	return len(b.descriptors)
}

// Names returns the declared names, sorted.
func (b *Bag) Names() []string {
	names := make([]string, 0, len(b.descriptors))
	for name := range b.descriptors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
