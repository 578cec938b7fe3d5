// Package model defines core data structures for featuremap.
package model

// Language identifies a supported source language, inferred from the
// file extension.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	JSX        Language = "jsx"
	Java       Language = "java"
	Cpp        Language = "cpp"
	CSharp     Language = "csharp"
)

// FileNote records a per-file degradation. Degraded files never abort
// a run; the note travels in Diagnostics, not in the report.
type FileNote string

const (
	NoteNone               FileNote = ""
	NoteUnreadable         FileNote = "unreadable"
	NoteTruncated          FileNote = "truncated"
	NotePartiallyExtracted FileNote = "partially_extracted"
)

// SourceFile is one readable source file discovered in the workspace.
// Immutable after the inventory walk.
type SourceFile struct {
	Path      string // relative to the workspace root, POSIX-style
	Language  Language
	Content   string
	LineCount int
}

// UnitKind is the syntactic kind of a code unit.
type UnitKind string

const (
	Function UnitKind = "function"
	Method   UnitKind = "method"
	Class    UnitKind = "class"
)

// CodeUnit is a named, line-bounded callable construct extracted from
// one source file. Lines are 1-based and inclusive; EndLine >= StartLine.
type CodeUnit struct {
	FilePath    string
	Kind        UnitKind
	Name        string
	Signature   string
	StartLine   int
	EndLine     int
	Enclosing   string // name of the nearest lexically containing unit, "" at top level
	BodyExcerpt string // bounded-length body text used for matching
}

// Span returns the number of lines the unit covers.
func (u *CodeUnit) Span() int {
	return u.EndLine - u.StartLine + 1
}

// Requirement is one clause of the input requirement description.
type Requirement struct {
	Text    string
	Ordinal int // 1-based position within the description
}

// LocalizationEvidence is a scored claim that Unit implements the
// requirement identified by RequirementOrdinal.
type LocalizationEvidence struct {
	RequirementOrdinal int
	Unit               CodeUnit
	Score              float64  // normalized to [0,1] per requirement
	MatchedTerms       []string // sorted tokens explaining the score
}

// Location is one implementation site in the report.
type Location struct {
	File     string `json:"file"`
	Function string `json:"function"`
	Lines    string `json:"lines"` // "start-end"
}

// FeatureEntry links one requirement to its ranked implementation sites.
type FeatureEntry struct {
	FeatureDescription     string     `json:"feature_description"`
	ImplementationLocation []Location `json:"implementation_location"`
}

// ExecutionResult is the outcome of running generated verification tests.
type ExecutionResult struct {
	TestsPassed bool   `json:"tests_passed"`
	Log         string `json:"log"`
}

// Verification carries externally produced test code and its outcome.
type Verification struct {
	GeneratedTestCode string          `json:"generated_test_code"`
	ExecutionResult   ExecutionResult `json:"execution_result"`
}

// Report is the canonical analysis report, the sole externally visible
// artifact of a run. Produced once and never mutated.
type Report struct {
	FeatureAnalysis         []FeatureEntry `json:"feature_analysis"`
	ExecutionPlanSuggestion string         `json:"execution_plan_suggestion"`
	FunctionalVerification  *Verification  `json:"functional_verification,omitempty"`
}
