package index

import (
	"reflect"
	"testing"

	"featuremap/internal/model"
)

func TestTokenize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []string
	}{
		{"getUserName", []string{"get", "user", "name"}},
		{"HTTPServer", []string{"http", "server"}},
		{"parse_config_file", []string{"parse", "config", "file"}},
		{"load-from-disk", []string{"load", "from", "disk"}},
		{"sha256Digest", []string{"sha", "digest"}},
		{"v2", nil},
		{"x", nil},
		{"retry3times", []string{"retry", "times"}},
		{"", nil},
	}
	for _, tc := range cases {
		got := Tokenize(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func unit(path, name string, start, end int, body string) model.CodeUnit {
	return model.CodeUnit{
		FilePath:    path,
		Kind:        model.Function,
		Name:        name,
		Signature:   name + "()",
		StartLine:   start,
		EndLine:     end,
		BodyExcerpt: body,
	}
}

func TestQueryOverlapAndNameShared(t *testing.T) {
	t.Parallel()

	x := Build([]model.CodeUnit{
		unit("a.py", "parseConfig", 1, 10, "read a config file and parse it"),
		unit("b.py", "renderPage", 1, 5, "template rendering"),
		unit("c.py", "loadFile", 1, 8, "parse nothing"),
	})

	got := x.Query("parse the config file")
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	top := got[0]
	if top.Unit.Name != "parseConfig" {
		t.Fatalf("top candidate = %q, want parseConfig", top.Unit.Name)
	}
	if top.Overlap != 3 {
		t.Errorf("overlap = %d, want 3", top.Overlap)
	}
	if want := []string{"config", "file", "parse"}; !reflect.DeepEqual(top.Shared, want) {
		t.Errorf("shared = %v, want %v", top.Shared, want)
	}
	if want := []string{"config", "parse"}; !reflect.DeepEqual(top.NameShared, want) {
		t.Errorf("nameShared = %v, want %v", top.NameShared, want)
	}

	if got[1].Unit.Name != "loadFile" {
		t.Errorf("second candidate = %q, want loadFile", got[1].Unit.Name)
	}
}

func TestQueryTieBreakOrder(t *testing.T) {
	t.Parallel()

	// Same overlap everywhere: order must fall back to span, then path.
	x := Build([]model.CodeUnit{
		unit("z.py", "cacheGet", 1, 20, ""),
		unit("a.py", "cacheSet", 1, 4, ""),
		unit("m.py", "cachePurge", 1, 4, ""),
	})

	got := x.Query("cache")
	var names []string
	for _, c := range got {
		names = append(names, c.Unit.Name)
	}
	want := []string{"cacheSet", "cachePurge", "cacheGet"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("order = %v, want %v", names, want)
	}
}

func TestQueryNoMatches(t *testing.T) {
	t.Parallel()

	x := Build([]model.CodeUnit{
		unit("a.py", "parseConfig", 1, 10, ""),
	})
	if got := x.Query("unrelated words entirely"); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestQueryDeterministic(t *testing.T) {
	t.Parallel()

	units := []model.CodeUnit{
		unit("a.py", "saveUser", 1, 6, "user record"),
		unit("b.py", "deleteUser", 1, 6, "user record"),
		unit("c.py", "findUser", 1, 6, "user record"),
	}
	x := Build(units)

	first := x.Query("user record lookup")
	for range 20 {
		if again := x.Query("user record lookup"); !reflect.DeepEqual(again, first) {
			t.Fatal("query order is not stable across runs")
		}
	}
}
