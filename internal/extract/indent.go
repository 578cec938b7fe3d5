package extract

import (
	"regexp"
	"strings"

	"featuremap/internal/model"
)

var (
	pyDefRe   = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)
	pyClassRe = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_]\w*)`)
)

// indentUnits extracts Python units. A unit ends at the last non-blank
// line indented strictly deeper than its header, before indentation
// returns to the header level or shallower, or at end of file.
// Comment-only lines at or below the header indent are skipped rather
// than treated as a dedent, matching how trailing comments sit between
// methods in practice.
func indentUnits(f model.SourceFile) ([]model.CodeUnit, model.FileNote) {
	lines := strings.Split(f.Content, "\n")

	type open struct {
		indent int
		name   string
		kind   model.UnitKind
	}
	var stack []open
	var units []model.CodeUnit

	for i, line := range lines {
		name, kind, ok := pyHeader(line)
		if !ok {
			continue
		}
		indent := indentWidth(line)

		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}

		enclosing := ""
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			enclosing = top.name
			if kind == model.Function && top.kind == model.Class {
				kind = model.Method
			}
		}

		start := i + 1
		end := pyEndLine(lines, i, indent)
		units = append(units, model.CodeUnit{
			FilePath:    f.Path,
			Kind:        kind,
			Name:        name,
			Signature:   collapseWhitespace(line),
			StartLine:   start,
			EndLine:     end,
			Enclosing:   enclosing,
			BodyExcerpt: excerpt(lines, start, end),
		})
		stack = append(stack, open{indent: indent, name: name, kind: kind})
	}

	return units, model.NoteNone
}

func pyHeader(line string) (string, model.UnitKind, bool) {
	if m := pyDefRe.FindStringSubmatch(line); m != nil {
		return m[2], model.Function, true
	}
	if m := pyClassRe.FindStringSubmatch(line); m != nil {
		return m[2], model.Class, true
	}
	return "", "", false
}

// pyEndLine scans forward from the header at index hi (0-based) and
// returns the 1-based last line of the block.
func pyEndLine(lines []string, hi, headerIndent int) int {
	end := hi + 1
	for i := hi + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		indent := indentWidth(lines[i])
		if indent > headerIndent {
			end = i + 1
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		break
	}
	return end
}

// indentWidth measures leading whitespace with tabs expanded to 8.
func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 8 - w%8
		default:
			return w
		}
	}
	return w
}
