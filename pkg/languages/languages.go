package languages

import (
	"sort"
	"strings"

	"github.com/mini-maxit/evaluator/pkg/constants"
	"github.com/mini-maxit/evaluator/pkg/errors"
)

type LanguageType int

const (
	Python LanguageType = iota + 1
	JavaScript
	Java
	CPP
	C
	Ruby
	Go
)

var LanguageTypeMap = map[string]LanguageType{
	"PYTHON":     Python,
	"JAVASCRIPT": JavaScript,
	"JAVA":       Java,
	"CPP":        CPP,
	"C":          C,
	"RUBY":       Ruby,
	"GO":         Go,
}

// Aliases accepted from clients in addition to the canonical names.
var languageAliases = map[string]LanguageType{
	"PY":      Python,
	"PYTHON3": Python,
	"JS":      JavaScript,
	"NODE":    JavaScript,
	"NODEJS":  JavaScript,
	"C++":     CPP,
	"CPP17":   CPP,
	"GOLANG":  Go,
	"RB":      Ruby,
}

type jdoodleSpec struct {
	language     string
	versionIndex string
}

var jdoodleLanguageMap = map[LanguageType]jdoodleSpec{
	Python:     {language: "python3", versionIndex: "4"},
	JavaScript: {language: "nodejs", versionIndex: "4"},
	Java:       {language: "java", versionIndex: "4"},
	CPP:        {language: "cpp17", versionIndex: "1"},
	C:          {language: "c", versionIndex: "5"},
	Ruby:       {language: "ruby", versionIndex: "4"},
	Go:         {language: "go", versionIndex: "4"},
}

var LanguageExtensionMap = map[LanguageType]string{
	Python:     "py",
	JavaScript: "js",
	Java:       "java",
	CPP:        "cpp",
	C:          "c",
	Ruby:       "rb",
	Go:         "go",
}

func (lt LanguageType) String() string {
	for key, value := range LanguageTypeMap {
		if value == lt {
			return strings.ToLower(key)
		}
	}
	return ""
}

func (lt LanguageType) IsValid() bool {
	_, ok := LanguageExtensionMap[lt]
	return ok
}

// SourceFileName returns the file name the solution is stored under inside a
// sandbox. Java requires the file to match the public class.
func (lt LanguageType) SourceFileName() (string, error) {
	if lt == Java {
		return "Main.java", nil
	}
	ext, ok := LanguageExtensionMap[lt]
	if !ok {
		return "", errors.ErrInvalidLanguageType
	}
	return "main." + ext, nil
}

// JDoodle returns the JDoodle language name and version index.
func (lt LanguageType) JDoodle() (string, string, error) {
	spec, ok := jdoodleLanguageMap[lt]
	if !ok {
		return "", "", errors.ErrInvalidLanguageType
	}
	return spec.language, spec.versionIndex, nil
}

func (lt LanguageType) GetDockerImage() (string, error) {
	if !lt.IsValid() {
		return "", errors.ErrInvalidLanguageType
	}
	return constants.RuntimeImagePrefix + "-" + lt.String() + ":latest", nil
}

// GetCompileCommand returns the compile step for compiled languages, or nil
// when the language is interpreted.
func (lt LanguageType) GetCompileCommand(sourceFile string) ([]string, error) {
	switch lt {
	case CPP:
		return []string{"g++", "-O2", "-std=c++17", "-o", "solution", sourceFile}, nil
	case C:
		return []string{"gcc", "-O2", "-o", "solution", sourceFile, "-lm"}, nil
	case Java:
		return []string{"javac", sourceFile}, nil
	case Go:
		return []string{"go", "build", "-o", "solution", sourceFile}, nil
	case Python, JavaScript, Ruby:
		return nil, nil
	default:
		return nil, errors.ErrInvalidLanguageType
	}
}

func (lt LanguageType) GetRunCommand(sourceFile string) ([]string, error) {
	switch lt {
	case Python:
		return []string{"python3", sourceFile}, nil
	case JavaScript:
		return []string{"node", sourceFile}, nil
	case Ruby:
		return []string{"ruby", sourceFile}, nil
	case Java:
		return []string{"java", "Main"}, nil
	case CPP, C, Go:
		return []string{"./solution"}, nil
	default:
		return nil, errors.ErrInvalidLanguageType
	}
}

func ParseLanguageType(s string) (LanguageType, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if lt, ok := LanguageTypeMap[key]; ok {
		return lt, nil
	}
	if lt, ok := languageAliases[key]; ok {
		return lt, nil
	}
	return 0, errors.ErrInvalidLanguageType
}

type LanguageSpec struct {
	LanguageName string `json:"name"`
	Extension    string `json:"extension"`
}

// GetSupportedLanguages returns the supported languages sorted by name.
func GetSupportedLanguages() []LanguageSpec {
	specs := make([]LanguageSpec, 0, len(LanguageTypeMap))
	for _, lt := range LanguageTypeMap {
		specs = append(specs, LanguageSpec{
			LanguageName: lt.String(),
			Extension:    LanguageExtensionMap[lt],
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].LanguageName < specs[j].LanguageName })
	return specs
}
