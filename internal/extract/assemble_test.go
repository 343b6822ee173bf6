package extract

import (
	"fmt"
	"strings"
	"testing"
)

func TestAssembleEmptyFindings(t *testing.T) {
	res := assemble(&findings{}, "test", "unit", "go test ./...")
	if res.TotalErrors != 0 {
		t.Errorf("TotalErrors = %d, want 0", res.TotalErrors)
	}
	if res.Summary != "0 test(s) failed" {
		t.Errorf("Summary = %q", res.Summary)
	}
	if res.Errors == nil {
		t.Error("Errors must be an empty slice, not nil")
	}
	if res.Guidance != "" || res.ErrorSummary != "" {
		t.Error("guidance and digest must be empty when nothing failed")
	}
}

func TestAssembleCapsButKeepsTrueTotal(t *testing.T) {
	f := &findings{}
	for i := 0; i < 12; i++ {
		f.add(FormattedError{File: fmt.Sprintf("a%d.go", i), Line: i + 1, Message: fmt.Sprintf("boom %d", i)})
	}
	res := assemble(f, "test", "", "")

	if res.TotalErrors != 12 {
		t.Errorf("TotalErrors = %d, want 12", res.TotalErrors)
	}
	if len(res.Errors) != MaxErrors {
		t.Errorf("len(Errors) = %d, want %d", len(res.Errors), MaxErrors)
	}
	if res.Summary != "12 test(s) failed" {
		t.Errorf("Summary = %q", res.Summary)
	}
	if !strings.HasPrefix(res.ErrorSummary, "[Test 1/12] a0.go:1 - boom 0") {
		t.Errorf("digest start = %q", firstLine(res.ErrorSummary))
	}
	if !strings.Contains(res.ErrorSummary, "...and 2 more") {
		t.Errorf("digest missing overflow marker:\n%s", res.ErrorSummary)
	}
}

func TestGuidanceSingleFailureIncludesRerun(t *testing.T) {
	f := &findings{}
	f.add(FormattedError{File: "store_test.go", Line: 44, Message: "wrong value"})
	res := assemble(f, "test", "unit", "go test -run 'TestStore' ./...")

	if !strings.Contains(res.Guidance, "Fix the single failing test") {
		t.Errorf("guidance = %q", res.Guidance)
	}
	if !strings.Contains(res.Guidance, `"unit"`) {
		t.Errorf("guidance missing step name: %q", res.Guidance)
	}
	if !strings.Contains(res.Guidance, "store_test.go:44") {
		t.Errorf("guidance missing location: %q", res.Guidance)
	}
	if !strings.Contains(res.Guidance, "go test -run 'TestStore' ./...") {
		t.Errorf("guidance missing rerun command: %q", res.Guidance)
	}
}

func TestGuidanceMultipleFailures(t *testing.T) {
	f := &findings{}
	f.add(FormattedError{Message: "first"})
	f.add(FormattedError{Message: "second"})
	res := assemble(f, "test", "", "go test ./...")

	if !strings.HasPrefix(res.Guidance, "2 tests failed") {
		t.Errorf("guidance = %q", res.Guidance)
	}
	if strings.Contains(res.Guidance, "go test") {
		t.Error("multi-failure guidance must not carry a rerun command")
	}
}

func TestGuidanceTimeout(t *testing.T) {
	f := &findings{timedOut: true}
	f.add(FormattedError{Message: "Test timeout of 30000ms exceeded."})
	res := assemble(f, "test", "", "")

	if !strings.Contains(res.Guidance, "execution timeout") {
		t.Errorf("guidance = %q", res.Guidance)
	}
}

func TestJoinMessageTruncates(t *testing.T) {
	lines := []string{"one", "two", "", "three", "four", "five", "six", "seven"}
	got := joinMessage(lines)
	parts := strings.Split(got, "\n")
	if len(parts) != maxMessageLines+1 {
		t.Fatalf("got %d lines, want %d", len(parts), maxMessageLines+1)
	}
	if parts[len(parts)-1] != "...(truncated)" {
		t.Errorf("last line = %q", parts[len(parts)-1])
	}
	if parts[0] != "one" || parts[2] != "three" {
		t.Errorf("blank lines not dropped: %v", parts)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in   string
		file string
		line int
		col  int
		ok   bool
	}{
		{"at src/auth.ts:42:5", "src/auth.ts", 42, 5, true},
		{"pkg/store.go:33: wrong count", "pkg/store.go", 33, 0, true},
		{"no location here", "", 0, 0, false},
		{"version 1.2.3 mentioned", "", 0, 0, false},
	}
	for _, tt := range tests {
		file, line, col, ok := parseLocation(tt.in)
		if ok != tt.ok || file != tt.file || line != tt.line || col != tt.col {
			t.Errorf("parseLocation(%q) = (%q, %d, %d, %v), want (%q, %d, %d, %v)",
				tt.in, file, line, col, ok, tt.file, tt.line, tt.col, tt.ok)
		}
	}
}

func TestFrameLocationPrefersUserCode(t *testing.T) {
	frames := []string{
		"  at Promise.then (node_modules/jest-circus/build/utils.js:298:28)",
		"  at Object.run (src/router.test.ts:48:22)",
	}
	file, line, _, ok := frameLocation(frames)
	if !ok || file != "src/router.test.ts" || line != 48 {
		t.Errorf("got (%q, %d, %v), want src/router.test.ts:48", file, line, ok)
	}
}

func TestFrameLocationFallsBackToInternal(t *testing.T) {
	frames := []string{
		"  at Resolver.resolve (node_modules/jest-resolve/build/resolver.js:324:11)",
	}
	file, _, _, ok := frameLocation(frames)
	if !ok || file != "node_modules/jest-resolve/build/resolver.js" {
		t.Errorf("got (%q, %v), want the internal frame as fallback", file, ok)
	}
}

func TestScoreExtraction(t *testing.T) {
	meta := scoreExtraction(nil, nil)
	if meta.Confidence != 90 || meta.Completeness != 100 {
		t.Errorf("clean scan: confidence %d completeness %d", meta.Confidence, meta.Completeness)
	}

	issues := []string{"a", "b", "c", "d", "e", "f", "g"}
	meta = scoreExtraction(nil, issues)
	if meta.Confidence != 30 {
		t.Errorf("confidence floor: got %d, want 30", meta.Confidence)
	}

	errs := []FormattedError{{File: "a.go", Message: "x"}, {Message: "y"}}
	meta = scoreExtraction(errs, nil)
	if meta.Completeness != 50 {
		t.Errorf("completeness = %d, want 50", meta.Completeness)
	}
}

func TestFindingsIssueDeduplicates(t *testing.T) {
	f := &findings{}
	f.issue("same caveat")
	f.issue("same caveat")
	f.issue("other caveat")
	if len(f.issues) != 2 {
		t.Errorf("got %d issues, want 2", len(f.issues))
	}
}

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Test timeout of 30000ms exceeded.", true},
		{"context deadline: step timed out after 2m0s", true},
		{"Exceeded timeout of 5000 ms for a test", true},
		{"expected 3, got 2", false},
	}
	for _, tt := range tests {
		if got := isTimeout(tt.in); got != tt.want {
			t.Errorf("isTimeout(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AssertionError: expected 'a' to equal 'b'", "AssertionError"},
		{"ZeroDivisionError: division by zero", "ZeroDivisionError"},
		{"something else entirely", ""},
	}
	for _, tt := range tests {
		if got := errorType(tt.in); got != tt.want {
			t.Errorf("errorType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
