package extract

import (
	"regexp"
	"sort"
	"strings"

	"featuremap/internal/model"
)

// headerRule recognizes one declaration shape on a scrubbed line.
type headerRule struct {
	re           *regexp.Regexp
	kind         model.UnitKind
	classOnly    bool // only valid when directly nested in a class body
	braceInMatch bool // the regex may consume the opening brace
}

var jsKeywordGuard = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "function": true, "new": true, "do": true, "else": true,
	"try": true, "typeof": true, "await": true, "yield": true,
}

var ccKeywordGuard = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true,
	"sizeof": true, "catch": true, "throw": true, "new": true, "delete": true,
}

var (
	jsRules = []headerRule{
		{re: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`), kind: model.Class},
		{re: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\([^)]*\)`), kind: model.Function},
		{re: regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|[A-Za-z_$][\w$]*\s*=>)`), kind: model.Function},
		{re: regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|async|readonly|get|set)\s+)*\*?\s*([A-Za-z_$][\w$]*)\s*\([^;{}]*\)\s*\{`), kind: model.Function, classOnly: true, braceInMatch: true},
	}

	javaRules = []headerRule{
		{re: regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|abstract|sealed|strictfp)\s+)*(?:class|interface|enum|record)\s+([A-Za-z_]\w*)`), kind: model.Class},
		{re: regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|abstract|synchronized|native|default)\s+)+[\w<>\[\]?,.\s]*?([A-Za-z_]\w*)\s*\([^)]*\)`), kind: model.Function},
	}

	csRules = []headerRule{
		{re: regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|sealed|abstract|partial)\s+)*(?:class|struct|interface|enum|record)\s+([A-Za-z_]\w*)`), kind: model.Class},
		{re: regexp.MustCompile(`^\s*(?:(?:public|private|protected|internal|static|virtual|override|sealed|async|abstract|extern|new)\s+)+[\w<>\[\]?,.\s]*?([A-Za-z_]\w*)\s*\([^)]*\)`), kind: model.Function},
	}

	cppRules = []headerRule{
		{re: regexp.MustCompile(`^\s*(?:class|struct)\s+([A-Za-z_]\w*)`), kind: model.Class},
		{re: regexp.MustCompile(`^\s*[A-Za-z_][\w:<>,*&\s]*?\b([A-Za-z_~]\w*)\s*\([^)]*\)\s*(?:const\s*)?(?:noexcept\s*)?(?:\{.*)?$`), kind: model.Function, braceInMatch: true},
	}
)

func rulesFor(l model.Language) ([]headerRule, map[string]bool, bool) {
	switch l {
	case model.JavaScript, model.TypeScript, model.TSX, model.JSX:
		return jsRules, jsKeywordGuard, true
	case model.Java:
		return javaRules, ccKeywordGuard, false
	case model.CSharp:
		return csRules, ccKeywordGuard, false
	case model.Cpp:
		return cppRules, ccKeywordGuard, false
	default:
		return nil, nil, false
	}
}

// braceUnits extracts units from a brace-delimited language. Headers
// are matched against a scrubbed copy of the source (comments and
// string contents blanked) so a "{" inside a literal never counts as a
// scope opener. Units whose opening brace never closes are dropped and
// the file marked partially extracted.
func braceUnits(f model.SourceFile) ([]model.CodeUnit, model.FileNote) {
	rules, guard, templates := rulesFor(f.Language)
	if rules == nil {
		return nil, model.NoteNone
	}

	lines := strings.Split(f.Content, "\n")
	cleanLines := strings.Split(scrub(f.Content, templates), "\n")

	note := model.NoteNone

	type candidate struct {
		model.CodeUnit
		classOnly bool
	}
	var cands []candidate

	for i, cl := range cleanLines {
		for _, r := range rules {
			loc := r.re.FindStringSubmatchIndex(cl)
			if loc == nil {
				continue
			}
			name := cl[loc[2]:loc[3]]
			if guard[name] {
				continue
			}
			col := loc[1]
			if r.braceInMatch {
				col = strings.LastIndexByte(cl[:loc[1]], '{')
			}
			end, bounded := braceEnd(cleanLines, i, col)
			if !bounded {
				note = model.NotePartiallyExtracted
				break
			}
			cands = append(cands, candidate{
				CodeUnit: model.CodeUnit{
					FilePath:    f.Path,
					Kind:        r.kind,
					Name:        name,
					Signature:   collapseWhitespace(lines[i]),
					StartLine:   i + 1,
					EndLine:     end,
					BodyExcerpt: excerpt(lines, i+1, end),
				},
				classOnly: r.classOnly,
			})
			break // at most one header per line
		}
	}

	// First nesting pass decides which class-only candidates actually
	// sit inside a class; everything else they matched (object
	// literals, top-level call-ish lines) is discarded.
	sort.SliceStable(cands, func(i, j int) bool {
		return less(&cands[i].CodeUnit, &cands[j].CodeUnit)
	})

	probe := make([]model.CodeUnit, len(cands))
	for i := range cands {
		probe[i] = cands[i].CodeUnit
	}
	assignNesting(probe)

	var units []model.CodeUnit
	for i := range cands {
		if cands[i].classOnly && probe[i].Kind != model.Method {
			continue
		}
		units = append(units, cands[i].CodeUnit)
	}
	assignNesting(units)

	return units, note
}

func less(a, b *model.CodeUnit) bool {
	if a.StartLine != b.StartLine {
		return a.StartLine < b.StartLine
	}
	return a.EndLine > b.EndLine
}

// braceEnd scans scrubbed lines from (li, col) for the unit body. It
// returns the 1-based line of the matching closing brace, or the
// header line itself for bodyless declarations (statement ends in ";"
// or no brace appears within the lookahead window). bounded is false
// when an opened brace never closes.
func braceEnd(cleanLines []string, li, col int) (int, bool) {
	const lookahead = 5

	depth := 0
	opened := false
	for i := li; i < len(cleanLines); i++ {
		start := 0
		if i == li {
			start = col
		}
		if start < 0 {
			start = 0
		}
		line := cleanLines[i]
		for j := start; j < len(line); j++ {
			switch line[j] {
			case '{':
				depth++
				opened = true
			case '}':
				if opened {
					depth--
					if depth == 0 {
						return i + 1, true
					}
				}
			case ';':
				if !opened {
					return li + 1, true
				}
			}
		}
		if !opened && i-li >= lookahead {
			return li + 1, true
		}
	}
	if opened {
		return 0, false
	}
	return li + 1, true
}

// scrub blanks comments and string/char/template literal contents while
// preserving line structure, so brace counting and header matching only
// ever see structural text. Single- and double-quoted strings reset at
// end of line; template literals span lines.
func scrub(src string, templates bool) string {
	const (
		code = iota
		lineComment
		blockComment
		single
		double
		backtick
	)

	b := []byte(src)
	out := make([]byte, len(b))
	state := code

	for i := 0; i < len(b); i++ {
		c := b[i]
		if c == '\n' {
			out[i] = '\n'
			switch state {
			case lineComment, single, double:
				state = code
			}
			continue
		}

		switch state {
		case code:
			switch {
			case c == '/' && i+1 < len(b) && b[i+1] == '/':
				state = lineComment
				out[i] = ' '
			case c == '/' && i+1 < len(b) && b[i+1] == '*':
				state = blockComment
				out[i] = ' '
				i++
				out[i] = ' '
			case c == '\'':
				state = single
				out[i] = ' '
			case c == '"':
				state = double
				out[i] = ' '
			case c == '`' && templates:
				state = backtick
				out[i] = ' '
			default:
				out[i] = c
			}
		case lineComment:
			out[i] = ' '
		case blockComment:
			if c == '*' && i+1 < len(b) && b[i+1] == '/' {
				out[i] = ' '
				i++
				out[i] = ' '
				state = code
			} else {
				out[i] = ' '
			}
		case single, double, backtick:
			out[i] = ' '
			switch {
			case c == '\\' && i+1 < len(b):
				i++
				if b[i] == '\n' {
					out[i] = '\n'
				} else {
					out[i] = ' '
				}
			case c == '\'' && state == single:
				state = code
			case c == '"' && state == double:
				state = code
			case c == '`' && state == backtick:
				state = code
			}
		}
	}
	return string(out)
}
