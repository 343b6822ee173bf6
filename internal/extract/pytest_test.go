package extract

import (
	"strings"
	"testing"
)

func TestPytestRichBlockWinsOverTerseSummary(t *testing.T) {
	input := "=================================== FAILURES ===================================\n" +
		"______________________________ test_total_count _______________________________\n" +
		"\n" +
		"    def test_total_count():\n" +
		">       assert count_errors(LOG) == 3\n" +
		"E       assert 2 == 3\n" +
		"\n" +
		"tests/test_counts.py:18: AssertionError\n" +
		"=========================== short test summary info ============================\n" +
		"FAILED tests/test_counts.py::test_total_count - assert 2 == 3\n" +
		"========================= 1 failed, 4 passed in 0.21s ==========================\n"

	res := (&PytestExtractor{}).Extract(input, "")
	if res.TotalErrors != 1 {
		t.Fatalf("TotalErrors = %d, want 1 (summary line double-counted?)", res.TotalErrors)
	}
	e := res.Errors[0]
	if e.File != "tests/test_counts.py" || e.Line != 18 {
		t.Errorf("location = %s:%d, want tests/test_counts.py:18", e.File, e.Line)
	}
	if !strings.Contains(e.Message, "assert 2 == 3") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestPytestClassBasedFailureNotDoubleCounted(t *testing.T) {
	// The FAILURES opener writes TestCounts.test_total_count, the summary
	// writes tests/test_counts.py::TestCounts::test_total_count; both
	// describe one failure.
	input := "=================================== FAILURES ===================================\n" +
		"_______________________ TestCounts.test_total_count ___________________________\n" +
		"\n" +
		"    def test_total_count(self):\n" +
		">       assert count_errors(LOG) == 3\n" +
		"E       assert 2 == 3\n" +
		"\n" +
		"tests/test_counts.py:18: AssertionError\n" +
		"=========================== short test summary info ============================\n" +
		"FAILED tests/test_counts.py::TestCounts::test_total_count - assert 2 == 3\n" +
		"========================= 1 failed, 4 passed in 0.21s ==========================\n"

	res := (&PytestExtractor{}).Extract(input, "")
	if res.TotalErrors != 1 {
		t.Fatalf("TotalErrors = %d, want 1 (class-based summary line double-counted)", res.TotalErrors)
	}
	if res.Errors[0].Context != "TestCounts.test_total_count" {
		t.Errorf("context = %q, want the rich block's", res.Errors[0].Context)
	}
	if res.Errors[0].Line != 18 {
		t.Errorf("line = %d, want the rich block's location", res.Errors[0].Line)
	}
}

func TestPytestTerseSummaryOnly(t *testing.T) {
	input := "=========================== short test summary info ============================\n" +
		"FAILED tests/test_api.py::test_get - ConnectionError: refused\n" +
		"FAILED tests/test_api.py::test_post\n" +
		"========================= 2 failed, 9 passed in 0.33s ==========================\n"

	res := (&PytestExtractor{}).Extract(input, "")
	if res.TotalErrors != 2 {
		t.Fatalf("TotalErrors = %d, want 2", res.TotalErrors)
	}
	if res.Errors[0].Message != "ConnectionError: refused" {
		t.Errorf("message = %q", res.Errors[0].Message)
	}
	if res.Errors[1].Message != "test test_post failed" {
		t.Errorf("placeholder message = %q", res.Errors[1].Message)
	}
	if res.Errors[0].File != "tests/test_api.py" {
		t.Errorf("file = %q", res.Errors[0].File)
	}
}

func TestPytestCollectionError(t *testing.T) {
	input := "==================================== ERRORS ====================================\n" +
		"__________________ ERROR collecting tests/test_routes.py ______________________\n" +
		"ImportError while importing test module 'tests/test_routes.py'.\n" +
		"tests/test_routes.py:3: ModuleNotFoundError\n" +
		"E   ModuleNotFoundError: No module named 'flask'\n" +
		"=========================== short test summary info ============================\n" +
		"ERROR tests/test_routes.py\n"

	res := (&PytestExtractor{}).Extract(input, "")
	if res.TotalErrors != 1 {
		t.Fatalf("TotalErrors = %d, want 1", res.TotalErrors)
	}
	e := res.Errors[0]
	if e.File != "tests/test_routes.py" || e.Line != 3 {
		t.Errorf("location = %s:%d", e.File, e.Line)
	}
	if !strings.Contains(e.Message, "ModuleNotFoundError: No module named 'flask'") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestPytestCoverageSentinel(t *testing.T) {
	input := "========================= 12 passed in 1.02s ==========================\n" +
		"FAIL Required test coverage of 80% not reached. Total coverage: 73.12%\n"

	res := (&PytestExtractor{}).Extract(input, "")
	if res.TotalErrors != 1 {
		t.Fatalf("TotalErrors = %d, want 1", res.TotalErrors)
	}
	if res.Errors[0].File != CoverageFile {
		t.Errorf("file = %q, want the coverage sentinel", res.Errors[0].File)
	}
	if !strings.Contains(res.Errors[0].Message, "73.12%") {
		t.Errorf("message = %q", res.Errors[0].Message)
	}
}

func TestPytestRerunTargetsSingleFailure(t *testing.T) {
	input := "=================================== FAILURES ===================================\n" +
		"______________________________ test_total_count _______________________________\n" +
		"E       assert 2 == 3\n" +
		"tests/test_counts.py:18: AssertionError\n" +
		"========================= 1 failed in 0.21s ==========================\n"

	res := (&PytestExtractor{}).Extract(input, "")
	if !strings.Contains(res.Guidance, "pytest tests/test_counts.py::test_total_count") {
		t.Errorf("guidance = %q", res.Guidance)
	}
}

func TestPytestDetectLevels(t *testing.T) {
	p := &PytestExtractor{}

	rich := "====== FAILURES ======\n______ test_x ______\nE  assert 1 == 2\n" +
		"====== short test summary info ======\nFAILED tests/test_x.py::test_x\n"
	if d := p.Detect(rich); d.Confidence != ConfidenceDistinctive {
		t.Errorf("rich: confidence = %d, want %d", d.Confidence, ConfidenceDistinctive)
	}

	passing := "========================= 5 passed in 0.10s ==========================\n"
	if d := p.Detect(passing); d.Confidence != 0 {
		t.Errorf("passing: confidence = %d, want 0", d.Confidence)
	}
}
