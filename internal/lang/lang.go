// Package lang provides the language registry mapping file extensions
// to supported languages and their unit-extraction strategies.
package lang

import "featuremap/internal/model"

// Strategy selects how code units are bounded for a language. The set
// is closed: adding a language means adding a table entry (and, rarely,
// a new strategy), never scattering string comparisons through the
// pipeline.
type Strategy int

const (
	// IndentDelimited bounds a unit by indentation depth (Python).
	IndentDelimited Strategy = iota
	// BraceDelimited bounds a unit by matching curly braces.
	BraceDelimited
)

// Info holds the registry entry for one supported language.
type Info struct {
	Language   model.Language
	Extensions []string
	Strategy   Strategy
}

// Languages maps language names to their configuration.
var Languages = map[model.Language]*Info{
	model.Python:     {Language: model.Python, Extensions: []string{".py"}, Strategy: IndentDelimited},
	model.JavaScript: {Language: model.JavaScript, Extensions: []string{".js"}, Strategy: BraceDelimited},
	model.TypeScript: {Language: model.TypeScript, Extensions: []string{".ts"}, Strategy: BraceDelimited},
	model.TSX:        {Language: model.TSX, Extensions: []string{".tsx"}, Strategy: BraceDelimited},
	model.JSX:        {Language: model.JSX, Extensions: []string{".jsx"}, Strategy: BraceDelimited},
	model.Java:       {Language: model.Java, Extensions: []string{".java"}, Strategy: BraceDelimited},
	model.Cpp:        {Language: model.Cpp, Extensions: []string{".cpp", ".cc", ".cxx"}, Strategy: BraceDelimited},
	model.CSharp:     {Language: model.CSharp, Extensions: []string{".cs"}, Strategy: BraceDelimited},
}

var extensionMap = func() map[string]model.Language {
	m := make(map[string]model.Language)
	for name, info := range Languages {
		for _, ext := range info.Extensions {
			m[ext] = name
		}
	}
	return m
}()

// ForExtension returns the language for a file extension, or "" if the
// extension is unsupported.
func ForExtension(ext string) model.Language {
	return extensionMap[ext]
}

// StrategyFor returns the extraction strategy for a language. The
// second result is false for unregistered languages.
func StrategyFor(l model.Language) (Strategy, bool) {
	info, ok := Languages[l]
	if !ok {
		return 0, false
	}
	return info.Strategy, true
}
