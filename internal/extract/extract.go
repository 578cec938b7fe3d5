// Package extract recognizes code units (functions, methods, classes)
// in source files using lightweight structural scanning.
//
// This is deliberately not a parser. Brace-delimited languages are
// bounded with a depth counter that lexically skips comments and
// string literals; Python is bounded by indentation. Nested template
// strings, raw strings and regex literals can confuse the counter in
// pathological files; the scanner then drops the unbounded units and
// marks the file partially extracted instead of failing the batch.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"featuremap/internal/lang"
	"featuremap/internal/model"
)

// maxExcerptBytes bounds the body text kept per unit for matching.
const maxExcerptBytes = 2048

// Units extracts the ordered code units of one source file. The note
// is NotePartiallyExtracted when part of the file could not be
// confidently bounded; extraction never fails outright.
func Units(f model.SourceFile) ([]model.CodeUnit, model.FileNote) {
	strategy, ok := lang.StrategyFor(f.Language)
	if !ok {
		return nil, model.NoteNone
	}

	var units []model.CodeUnit
	var note model.FileNote
	switch strategy {
	case lang.IndentDelimited:
		units, note = indentUnits(f)
	case lang.BraceDelimited:
		units, note = braceUnits(f)
	}

	sort.SliceStable(units, func(i, j int) bool {
		if units[i].StartLine != units[j].StartLine {
			return units[i].StartLine < units[j].StartLine
		}
		return units[i].EndLine > units[j].EndLine
	})
	return units, note
}

// assignNesting fills Enclosing with the nearest lexically containing
// unit and promotes functions directly inside a class to methods.
// Units must be sorted by start line (outermost first on ties).
func assignNesting(units []model.CodeUnit) {
	type frame struct {
		name string
		kind model.UnitKind
		end  int
	}
	var stack []frame
	for i := range units {
		u := &units[i]
		for len(stack) > 0 && stack[len(stack)-1].end < u.StartLine {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			u.Enclosing = top.name
			if u.Kind == model.Function && top.kind == model.Class {
				u.Kind = model.Method
			}
		}
		stack = append(stack, frame{name: u.Name, kind: u.Kind, end: u.EndLine})
	}
}

// excerpt returns the unit body bounded to maxExcerptBytes.
func excerpt(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	var b strings.Builder
	for i := start - 1; i < end; i++ {
		if b.Len()+len(lines[i])+1 > maxExcerptBytes {
			b.WriteString(lines[i][:max(0, maxExcerptBytes-b.Len())])
			break
		}
		b.WriteString(lines[i])
		b.WriteByte('\n')
	}
	return b.String()
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// collapseWhitespace replaces runs of whitespace with a single space and trims.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
