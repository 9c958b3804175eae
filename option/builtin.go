package option

// builtinDefaults mirrors the defaults the formatter and import sorter are normally configured with.
// Options without an entry here may still be declared by the user.
var builtinDefaults = map[string]string{
	// shared
	"sourceDirectory":     "${PROJECT_SOURCE_DIR}",
	"testSourceDirectory": "${PROJECT_TEST_SOURCE_DIR}",
	"lineEnding":          "AUTO",

	// formatter
	"targetDirectory":        "${PROJECT_BUILD_DIR}",
	"basedir":                "${PROJECT_ROOT}",
	"cachedir":               "${PROJECT_BUILD_DIR}",
	"compilerSource":         "1.8",
	"compilerCompliance":     "1.8",
	"compilerTargetPlatform": "1.8",
	"encoding":               "${SOURCE_ENCODING}",
	"configFile":             "formatter-maven-plugin/eclipse/java.xml",
	"configJsFile":           "formatter-maven-plugin/eclipse/javascript.xml",
	"configHtmlFile":         "formatter-maven-plugin/jsoup/html.properties",
	"configXmlFile":          "formatter-maven-plugin/eclipse/xml.properties",
	"configJsonFile":         "formatter-maven-plugin/jackson/json.properties",
	"configCssFile":          "formatter-maven-plugin/ph-css/css.properties",
	"skipJavaFormatting":     "false",
	"skipJsFormatting":       "false",
	"skipHtmlFormatting":     "false",
	"skipXmlFormatting":      "false",
	"skipJsonFormatting":     "false",
	"skipCssFormatting":      "false",
	"skipFormatting":         "false",
	"useEclipseDefaults":     "false",

	// import sorter
	"sourceEncoding":           "${SOURCE_ENCODING}",
	"skip":                     "false",
	"staticGroups":             "*",
	"groups":                   "*",
	"staticAfter":              "false",
	"joinStaticWithNonStatic":  "false",
	"removeUnused":             "false",
	"treatSamePackageAsUnused": "true",
	"breadthFirstComparator":   "true",
	"compliance":               "${COMPILER_RELEASE}",
}

// declaredWithoutDefault are recognised by a builtin schema but have no sensible default.
var declaredWithoutDefault = []string{
	"directories",
	"excludes",
	"javaExclusionPattern",
}

// Builtins returns a Bag declaring every non-inclusion option of the builtin schemas along with its default.
func Builtins() *Bag {
	b := &Bag{descriptors: make(map[string]Descriptor, len(builtinDefaults)+len(declaredWithoutDefault))}

	for name, value := range builtinDefaults {
		b.descriptors[name] = Descriptor{Name: name, Default: &value}
	}

	for _, name := range declaredWithoutDefault {
		b.descriptors[name] = Descriptor{Name: name}
	}

	return b
}
