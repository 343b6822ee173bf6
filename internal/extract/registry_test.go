package extract

import (
	"fmt"
	"strings"
	"testing"
)

type stubPlugin struct {
	name     string
	priority int
}

func (s *stubPlugin) Meta() Meta                          { return Meta{Name: s.name, Priority: s.priority} }
func (s *stubPlugin) Detect(output string) DetectionResult { return noMatch() }
func (s *stubPlugin) Extract(output, hint string) Result  { return Result{} }
func (s *stubPlugin) Samples() []Sample                   { return nil }

func TestRegisterOrdersByPriority(t *testing.T) {
	r := &Registry{fallback: &GenericExtractor{}}
	r.Register(&stubPlugin{name: "low", priority: 10})
	r.Register(&stubPlugin{name: "first-high", priority: 90})
	r.Register(&stubPlugin{name: "mid", priority: 50})
	r.Register(&stubPlugin{name: "second-high", priority: 90})

	var got []string
	for _, p := range r.plugins {
		got = append(got, p.Meta().Name)
	}
	want := []string{"first-high", "second-high", "mid", "low"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("plugin order = %v, want %v", got, want)
	}
}

func TestDetectPrefersSpecificOverGeneric(t *testing.T) {
	// Plenty of generic error wording here; the go test markers must still win.
	input := "--- FAIL: TestRouter (0.02s)\n" +
		"    router_test.go:31: error: fatal mismatch, operation failed\n" +
		"FAIL\n" +
		"FAIL\tgithub.com/acme/app\t0.1s\n"

	r := NewRegistry()
	p, d := r.Detect(input)
	if p.Meta().Name != "go-test" {
		t.Fatalf("chose %q, want go-test", p.Meta().Name)
	}
	if d.Confidence < p.Meta().Threshold {
		t.Errorf("confidence %d below threshold %d", d.Confidence, p.Meta().Threshold)
	}
}

func TestDetectFallsBackToGeneric(t *testing.T) {
	r := NewRegistry()
	p, d := r.Detect("deploy: upload failed with error code 7\n")
	if p.Meta().Name != "generic" {
		t.Fatalf("chose %q, want generic", p.Meta().Name)
	}
	if d.Confidence != ConfidenceGeneric {
		t.Errorf("confidence = %d, want %d", d.Confidence, ConfidenceGeneric)
	}
}

func TestDetectPassingOutputUsesFallbackConfidence(t *testing.T) {
	r := NewRegistry()
	p, d := r.Detect("=== RUN   TestOK\n--- PASS: TestOK (0.00s)\nPASS\nok  \tgithub.com/acme/app\t0.01s\n")
	if p.Meta().Name != "generic" {
		t.Fatalf("chose %q, want generic", p.Meta().Name)
	}
	if d.Confidence != ConfidenceFallback {
		t.Errorf("confidence = %d, want %d", d.Confidence, ConfidenceFallback)
	}
}

func TestDetectHonorsForbiddenHints(t *testing.T) {
	// Passing/failing counts plus a "● " marker: mocha forbids the marker,
	// so it must not claim this output.
	input := "  ● suite name\n\n  3 passing\n  1 failing\n"
	r := NewRegistry()
	p, _ := r.Detect(input)
	if p.Meta().Name == "mocha" {
		t.Error("mocha claimed output containing its forbidden marker")
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	input := "src/auth.ts(42,5): error TS2345: Argument of type 'string' is not assignable.\n"
	r := NewRegistry()
	p1, d1 := r.Detect(input)
	p2, d2 := r.Detect(input)
	if p1.Meta().Name != p2.Meta().Name {
		t.Errorf("plugin changed between calls: %q then %q", p1.Meta().Name, p2.Meta().Name)
	}
	if d1.Confidence != d2.Confidence {
		t.Errorf("confidence changed between calls: %d then %d", d1.Confidence, d2.Confidence)
	}
}

func TestRunStampsDetectionMetadata(t *testing.T) {
	input := "--- FAIL: TestX (0.00s)\n    x_test.go:5: boom\nFAIL\tgithub.com/acme/app\t0.1s\n"
	res := NewRegistry().Run("unit tests", input)
	if res.Metadata.Detection == nil {
		t.Fatal("Detection metadata not stamped")
	}
	if res.Metadata.Detection.Extractor != "go-test" {
		t.Errorf("detection extractor = %q, want go-test", res.Metadata.Detection.Extractor)
	}
	if res.Metadata.Detection.Confidence == 0 {
		t.Error("detection confidence not recorded")
	}
}

func TestRunCleansOutputBeforeRouting(t *testing.T) {
	raw := "build\tRun tsc\t2026-01-26T14:49:40.7760945Z \x1b[31msrc/auth.ts(42,5): error TS2345: bad argument\x1b[0m\r\n"
	res := NewRegistry().Run("", raw)
	if res.Metadata.Detection.Extractor != "tsc" {
		t.Fatalf("routed to %q, want tsc", res.Metadata.Detection.Extractor)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(res.Errors))
	}
	if res.Errors[0].File != "src/auth.ts" {
		t.Errorf("file = %q, want src/auth.ts", res.Errors[0].File)
	}
	if strings.ContainsRune(res.Errors[0].Message, '\x1b') {
		t.Error("escape sequences leaked into the message")
	}
}

func TestRunCapsErrorsAtMax(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "--- FAIL: TestCase%d (0.00s)\n    case_test.go:%d: value mismatch %d\n", i, i+10, i)
	}
	b.WriteString("FAIL\nFAIL\tgithub.com/acme/app\t0.5s\n")

	res := NewRegistry().Run("", b.String())
	if res.TotalErrors != 15 {
		t.Errorf("TotalErrors = %d, want 15", res.TotalErrors)
	}
	if len(res.Errors) != MaxErrors {
		t.Errorf("len(Errors) = %d, want %d", len(res.Errors), MaxErrors)
	}
	if !strings.Contains(res.ErrorSummary, "...and 5 more") {
		t.Errorf("digest missing overflow marker:\n%s", res.ErrorSummary)
	}
	// Discovery order survives the cap.
	if res.Errors[0].Line != 10 {
		t.Errorf("first error line = %d, want 10", res.Errors[0].Line)
	}
}

func TestExtractEmptyInputAcrossPlugins(t *testing.T) {
	for _, p := range NewRegistry().Plugins() {
		res := p.Extract("", "")
		if res.TotalErrors != 0 {
			t.Errorf("%s: TotalErrors = %d on empty input", p.Meta().Name, res.TotalErrors)
		}
		if len(res.Errors) != 0 {
			t.Errorf("%s: %d errors on empty input", p.Meta().Name, len(res.Errors))
		}
		if !strings.HasPrefix(res.Summary, "0 ") || !strings.HasSuffix(res.Summary, "(s) failed") {
			t.Errorf("%s: summary = %q on empty input", p.Meta().Name, res.Summary)
		}
	}
}

func TestLookup(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"junit", "go-test", "generic"} {
		if p := r.Lookup(name); p == nil || p.Meta().Name != name {
			t.Errorf("Lookup(%q) failed", name)
		}
	}
	if p := r.Lookup("rspec"); p != nil {
		t.Errorf("Lookup(rspec) = %q, want nil", p.Meta().Name)
	}
}

func TestPluginsIncludesFallbackLast(t *testing.T) {
	plugins := NewRegistry().Plugins()
	if len(plugins) != 11 {
		t.Fatalf("got %d plugins, want 11", len(plugins))
	}
	if plugins[len(plugins)-1].Meta().Name != "generic" {
		t.Errorf("last plugin = %q, want generic", plugins[len(plugins)-1].Meta().Name)
	}
	if plugins[0].Meta().Name != "junit" {
		t.Errorf("first plugin = %q, want junit", plugins[0].Meta().Name)
	}
}
