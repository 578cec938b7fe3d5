// Package inventory walks an extracted workspace and lists the source
// files eligible for analysis.
package inventory

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	ignore "github.com/sabhiram/go-gitignore"

	"featuremap/internal/lang"
	"featuremap/internal/model"
)

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"build":         {},
	"dist":          {},
	"bin":           {},
	"obj":           {},
	".tox":          {},
	".mypy_cache":   {},
	".pytest_cache": {},
}

// List walks root and returns supported source files in lexicographic
// path order, plus the relative paths of files that could not be
// decoded. Unsupported extensions are silently excluded; an unreadable
// file is never fatal to the walk.
func List(root string) ([]model.SourceFile, []string, error) {
	gi := loadGitignore(root)

	var files []model.SourceFile
	var unreadable []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable directory entries
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		language := lang.ForExtension(filepath.Ext(name))
		if language == "" {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			unreadable = append(unreadable, rel)
			return nil
		}
		content, ok := decode(raw)
		if !ok {
			unreadable = append(unreadable, rel)
			return nil
		}

		files = append(files, model.SourceFile{
			Path:      rel,
			Language:  language,
			Content:   content,
			LineCount: countLines(content),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	sort.Strings(unreadable)

	return files, unreadable, nil
}

// decode attempts strict UTF-8, then a permissive pass that substitutes
// undecodable bytes. Files with NUL bytes are treated as binary and
// reported undecodable.
func decode(raw []byte) (string, bool) {
	if strings.IndexByte(string(raw), 0) >= 0 {
		return "", false
	}
	if utf8.Valid(raw) {
		return string(raw), true
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), true
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
