package option

import (
	"errors"
	"fmt"
	"slices"
)

// Includes is the inclusion-list option of both builtin schemas.
const Includes = "includes"

var (
	ErrInvalidSchema = errors.New("invalid schema")

	formatterNames = [...]string{
		"sourceDirectory",
		"testSourceDirectory",
		"targetDirectory",
		"basedir",
		"cachedir",
		"directories",
		Includes,
		"excludes",
		"compilerSource",
		"compilerCompliance",
		"compilerTargetPlatform",
		"encoding",
		"lineEnding",
		"configFile",
		"configJsFile",
		"configHtmlFile",
		"configXmlFile",
		"configJsonFile",
		"configCssFile",
		"skipJavaFormatting",
		"skipJsFormatting",
		"skipHtmlFormatting",
		"skipXmlFormatting",
		"skipJsonFormatting",
		"skipCssFormatting",
		"skipFormatting",
		"useEclipseDefaults",
		"javaExclusionPattern",
	}

	importSorterNames = [...]string{
		"sourceEncoding",
		"skip",
		"staticGroups",
		"groups",
		"staticAfter",
		"joinStaticWithNonStatic",
		"sourceDirectory",
		"testSourceDirectory",
		"directories",
		Includes,
		"excludes",
		"removeUnused",
		"treatSamePackageAsUnused",
		"breadthFirstComparator",
		"lineEnding",
		"compliance",
	}
)

// Schema is the fixed, ordered list of option names a tool accepts. Exactly one of them is the inclusion-list
// option, whose value is always the change set.
type Schema struct {
	tool      string
	inclusion string
	names     []string
}

// NewSchema validates and creates a Schema.
func NewSchema(tool string, inclusion string, names ...string) (Schema, error) {
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if name == "" {
			return Schema{}, fmt.Errorf("%w: %s has an empty option name", ErrInvalidSchema, tool)
		} else if seen[name] {
			return Schema{}, fmt.Errorf("%w: %s declares option '%s' twice", ErrInvalidSchema, tool, name)
		}

		seen[name] = true
	}

	if !seen[inclusion] {
		return Schema{}, fmt.Errorf("%w: %s does not declare its inclusion option '%s'", ErrInvalidSchema, tool, inclusion)
	}

	return Schema{
		tool:      tool,
		inclusion: inclusion,
		names:     slices.Clone(names),
	}, nil
}

func mustSchema(tool string, inclusion string, names ...string) Schema {
	schema, err := NewSchema(tool, inclusion, names...)
	if err != nil {
		panic(err)
	}

	return schema
}

// FormatterSchema returns the options understood by the code formatter.
func FormatterSchema() Schema {
	return mustSchema("formatter", Includes, formatterNames[:]...)
}

// ImportSorterSchema returns the options understood by the import sorter.
func ImportSorterSchema() Schema {
	return mustSchema("import-sorter", Includes, importSorterNames[:]...)
}

func (s Schema) Tool() string {
	return s.tool
}

func (s Schema) Inclusion() string {
	return s.inclusion
}

// Names returns a copy of the option names in declaration order.
func (s Schema) Names() []string {
	return slices.Clone(s.names)
}

func (s Schema) Has(name string) bool {
	return slices.Contains(s.names, name)
}
