package extract

import (
	"strings"
	"testing"

	"featuremap/internal/model"
)

func srcFile(path string, language model.Language, lines ...string) model.SourceFile {
	return model.SourceFile{
		Path:      path,
		Language:  language,
		Content:   strings.Join(lines, "\n"),
		LineCount: len(lines),
	}
}

func TestBraceInsideStringLiteralIgnored(t *testing.T) {
	t.Parallel()

	f := srcFile("app.js", model.JavaScript,
		"function render() {",          // 1
		"  const open = \"{\";",        // 2
		"  return open + '}';",         // 3
		"}",                            // 4
		"function next() { return 1; }", // 5
	)

	units, note := Units(f)
	if note != model.NoteNone {
		t.Errorf("note = %q, want none", note)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %+v", len(units), units)
	}
	if units[0].Name != "render" || units[0].EndLine != 4 {
		t.Errorf("render ends at %d, want 4", units[0].EndLine)
	}
	if units[1].StartLine != 5 || units[1].EndLine != 5 {
		t.Errorf("next span = %d-%d, want 5-5", units[1].StartLine, units[1].EndLine)
	}
}

func TestBraceInsideCommentIgnored(t *testing.T) {
	t.Parallel()

	f := srcFile("app.js", model.JavaScript,
		"function check() {", // 1
		"  // stray {",       // 2
		"  /* and { again",   // 3
		"     still open { */", // 4
		"  return 0;",        // 5
		"}",                  // 6
	)

	units, _ := Units(f)
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if units[0].EndLine != 6 {
		t.Errorf("end = %d, want 6", units[0].EndLine)
	}
}

func TestArrowFunctionWithoutBody(t *testing.T) {
	t.Parallel()

	f := srcFile("util.ts", model.TypeScript,
		"export const double = (n: number) => n * 2;", // 1
		"const tripler = (n) => {",                    // 2
		"  return n * 3;",                             // 3
		"};",                                          // 4
	)

	units, _ := Units(f)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %+v", len(units), units)
	}
	if units[0].Name != "double" || units[0].EndLine != 1 {
		t.Errorf("double span = %d-%d, want 1-1", units[0].StartLine, units[0].EndLine)
	}
	if units[1].Name != "tripler" || units[1].EndLine != 4 {
		t.Errorf("tripler ends at %d, want 4", units[1].EndLine)
	}
}

func TestJavaClassWithMethods(t *testing.T) {
	t.Parallel()

	f := srcFile("Config.java", model.Java,
		"public class ConfigLoader {",                   // 1
		"    private int retries = 3;",                  // 2
		"",                                              // 3
		"    public String loadConfig(String path) {",   // 4
		"        return path;",                          // 5
		"    }",                                         // 6
		"",                                              // 7
		"    public static void reset() { count = 0; }", // 8
		"}",                                             // 9
	)

	units, _ := Units(f)
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d: %+v", len(units), units)
	}
	cls := units[0]
	if cls.Name != "ConfigLoader" || cls.Kind != model.Class || cls.EndLine != 9 {
		t.Errorf("class = %q/%q ending %d, want ConfigLoader/class/9", cls.Name, cls.Kind, cls.EndLine)
	}
	load := units[1]
	if load.Name != "loadConfig" || load.Kind != model.Method || load.Enclosing != "ConfigLoader" {
		t.Errorf("loadConfig = %+v", load)
	}
	if load.StartLine != 4 || load.EndLine != 6 {
		t.Errorf("loadConfig span = %d-%d, want 4-6", load.StartLine, load.EndLine)
	}
	reset := units[2]
	if reset.StartLine != 8 || reset.EndLine != 8 {
		t.Errorf("reset span = %d-%d, want 8-8", reset.StartLine, reset.EndLine)
	}
}

func TestTypeScriptClassMethods(t *testing.T) {
	t.Parallel()

	f := srcFile("service.ts", model.TypeScript,
		"export class UserService {",      // 1
		"  private cache = new Map();",    // 2
		"",                                // 3
		"  async getUserName(id: string) {", // 4
		"    return this.cache.get(id);",  // 5
		"  }",                             // 6
		"}",                               // 7
	)

	units, _ := Units(f)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %+v", len(units), units)
	}
	m := units[1]
	if m.Name != "getUserName" || m.Kind != model.Method || m.Enclosing != "UserService" {
		t.Errorf("method = %q/%q in %q", m.Name, m.Kind, m.Enclosing)
	}
}

func TestMethodPatternOutsideClassDiscarded(t *testing.T) {
	t.Parallel()

	// Looks like a method header but sits at top level (object literal
	// member shapes and control flow must not become units).
	f := srcFile("top.js", model.JavaScript,
		"register(() => {", // 1
		"  setup();",       // 2
		"});",              // 3
	)

	units, _ := Units(f)
	if len(units) != 0 {
		t.Fatalf("expected no units, got %+v", units)
	}
}

func TestUnbalancedBracesDegrade(t *testing.T) {
	t.Parallel()

	f := srcFile("broken.js", model.JavaScript,
		"function ok() {",     // 1
		"  return 1;",         // 2
		"}",                   // 3
		"function broken() {", // 4
		"  if (x) {",          // 5
		"    return 2;",       // 6
	)

	units, note := Units(f)
	if note != model.NotePartiallyExtracted {
		t.Errorf("note = %q, want partially_extracted", note)
	}
	if len(units) != 1 || units[0].Name != "ok" {
		t.Fatalf("expected only the bounded unit, got %+v", units)
	}
}

func TestCSharpMethod(t *testing.T) {
	t.Parallel()

	f := srcFile("Parser.cs", model.CSharp,
		"public class ConfigParser",          // 1
		"{",                                  // 2
		"    public int ParseConfig(string s)", // 3
		"    {",                              // 4
		"        return s.Length;",           // 5
		"    }",                              // 6
		"}",                                  // 7
	)

	units, _ := Units(f)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %+v", len(units), units)
	}
	if units[0].Name != "ConfigParser" || units[0].EndLine != 7 {
		t.Errorf("class span ends %d, want 7", units[0].EndLine)
	}
	m := units[1]
	if m.Name != "ParseConfig" || m.Kind != model.Method {
		t.Errorf("method = %q/%q, want ParseConfig/method", m.Name, m.Kind)
	}
	if m.StartLine != 3 || m.EndLine != 6 {
		t.Errorf("method span = %d-%d, want 3-6", m.StartLine, m.EndLine)
	}
}

func TestCppFunction(t *testing.T) {
	t.Parallel()

	f := srcFile("math.cpp", model.Cpp,
		"int computeSum(int a, int b) {", // 1
		"    return a + b;",              // 2
		"}",                              // 3
		"",                               // 4
		"double scale(double v)",         // 5
		"{",                              // 6
		"    return v * 2.0;",            // 7
		"}",                              // 8
	)

	units, _ := Units(f)
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %+v", len(units), units)
	}
	if units[0].Name != "computeSum" || units[0].EndLine != 3 {
		t.Errorf("computeSum ends %d, want 3", units[0].EndLine)
	}
	if units[1].Name != "scale" || units[1].StartLine != 5 || units[1].EndLine != 8 {
		t.Errorf("scale span = %d-%d, want 5-8", units[1].StartLine, units[1].EndLine)
	}
}
