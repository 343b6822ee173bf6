package quality

import (
	"testing"

	"github.com/lucasnoah/sift/internal/extract"
)

func TestAllExtractorsMeetTheBar(t *testing.T) {
	reports := ScoreAll(extract.NewRegistry())
	if len(reports) != 11 {
		t.Fatalf("got %d reports, want 11", len(reports))
	}
	for _, rep := range reports {
		if rep.Score < PassBar {
			t.Errorf("%s scored %d/100: %v", rep.Extractor, rep.Score, rep.Failures)
		}
	}
}

func TestAllPass(t *testing.T) {
	ok := []Report{{Extractor: "a", Score: 100}, {Extractor: "b", Score: PassBar}}
	if !AllPass(ok) {
		t.Error("AllPass = false for passing reports")
	}
	bad := append(ok, Report{Extractor: "c", Score: PassBar - 1})
	if AllPass(bad) {
		t.Error("AllPass = true with a report below the bar")
	}
}

// miscountPlugin claims two failures in its sample but extracts none.
type miscountPlugin struct{}

func (miscountPlugin) Meta() extract.Meta {
	return extract.Meta{Name: "miscount", Threshold: 50}
}

func (miscountPlugin) Detect(output string) extract.DetectionResult {
	return extract.DetectionResult{Confidence: 85}
}

func (miscountPlugin) Extract(output, hint string) extract.Result {
	return extract.Result{Errors: []extract.FormattedError{}, Summary: "0 test(s) failed"}
}

func (miscountPlugin) Samples() []extract.Sample {
	return []extract.Sample{{Name: "undercount", Input: "whatever", WantErrors: 2}}
}

func TestScorePluginFlagsWrongCount(t *testing.T) {
	rep := ScorePlugin(miscountPlugin{})
	if rep.Score >= PassBar {
		t.Errorf("score = %d, want below the bar", rep.Score)
	}
	if len(rep.Failures) == 0 {
		t.Fatal("no failures recorded for a miscounting plugin")
	}
}

// brokenPlugin violates the cap invariant.
type brokenPlugin struct{}

func (brokenPlugin) Meta() extract.Meta {
	return extract.Meta{Name: "broken", Threshold: 0}
}

func (brokenPlugin) Detect(output string) extract.DetectionResult {
	return extract.DetectionResult{Confidence: 85}
}

func (brokenPlugin) Extract(output, hint string) extract.Result {
	errs := make([]extract.FormattedError, extract.MaxErrors+1)
	for i := range errs {
		errs[i] = extract.FormattedError{Message: "x"}
	}
	return extract.Result{Errors: errs, TotalErrors: len(errs)}
}

func (brokenPlugin) Samples() []extract.Sample {
	return []extract.Sample{{Name: "overflow", Input: "in", WantErrors: extract.MaxErrors + 1}}
}

func TestScorePluginFlagsInvariantViolation(t *testing.T) {
	rep := ScorePlugin(brokenPlugin{})
	found := false
	for _, f := range rep.Failures {
		if f == "overflow: result violates structural invariants" {
			found = true
		}
	}
	if !found {
		t.Errorf("invariant violation not flagged: %v", rep.Failures)
	}
}
