package extract

import (
	"regexp"
	"strings"
)

// PytestExtractor parses pytest terminal output. Rich per-failure blocks in
// the FAILURES section are preferred; the short test summary is a fallback
// used only when no rich block was found. Interpreter-level problems from
// the ERRORS section become runtime records, and a coverage-threshold
// violation becomes an aggregate record on the coverage sentinel file.
type PytestExtractor struct{}

func (p *PytestExtractor) Meta() Meta {
	return Meta{
		Name:        "pytest",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "pytest terminal output",
		Tags:        []string{"test", "python"},
		Priority:    80,
		Threshold:   85,
		Hints: Hints{
			AnyOf: []string{"FAILURES", "FAILED", "ERRORS", "test coverage"},
		},
	}
}

var (
	pytestSectionRe = regexp.MustCompile(`^=+ (.+?) =+$`)
	pytestOpenerRe  = regexp.MustCompile(`^_+ (.+?) _+$`)
	pytestLocRe     = regexp.MustCompile(`^([\w./\\-]+\.py):(\d+):(?: (.+))?$`)
	pytestTerseRe   = regexp.MustCompile(`^FAILED ([\w./\\-]+\.py)::(\S+?)(?: - (.+))?$`)
	pytestErrorRe   = regexp.MustCompile(`^ERROR ([\w./\\-]+\.py)(?:::(\S+?))?(?: - (.+))?$`)
	pytestCovRe     = regexp.MustCompile(`(?i)required test coverage of ([\d.]+)% not reached\. total coverage: ([\d.]+)%`)
)

func (p *PytestExtractor) Detect(output string) DetectionResult {
	hasFailures := pytestHasSection(output, "FAILURES")
	hasSummary := pytestHasSection(output, "short test summary info")
	hasTerse := pytestTerseRe.MatchString(output) || strings.Contains(output, "\nFAILED ")
	hasErrors := pytestHasSection(output, "ERRORS")
	hasCoverage := pytestCovRe.MatchString(output)

	switch {
	case hasFailures && hasSummary:
		return DetectionResult{
			Confidence: ConfidenceDistinctive,
			Patterns:   []string{"= FAILURES =", "short test summary info"},
			Reason:     "pytest FAILURES banner with short summary section",
		}
	case hasFailures || hasErrors:
		return DetectionResult{
			Confidence: ConfidenceStrongMulti,
			Patterns:   []string{"= FAILURES/ERRORS ="},
			Reason:     "pytest section banner",
		}
	case hasTerse && strings.Contains(output, "::"):
		return DetectionResult{
			Confidence: ConfidenceSingle,
			Patterns:   []string{"FAILED <file>::<test>"},
			Reason:     "pytest short-summary failure lines",
		}
	case hasCoverage:
		return DetectionResult{
			Confidence: ConfidenceSingle,
			Patterns:   []string{"coverage threshold"},
			Reason:     "pytest-cov threshold failure",
		}
	}
	return noMatch()
}

func pytestHasSection(output, name string) bool {
	for _, line := range strings.Split(output, "\n") {
		m := pytestSectionRe.FindStringSubmatch(strings.TrimSpace(line))
		if m != nil && strings.EqualFold(strings.TrimSpace(m[1]), name) {
			return true
		}
	}
	return false
}

func (p *PytestExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	lines := strings.Split(output, "\n")

	section := ""
	var blockName string
	var blockLines []string

	flush := func() {
		if blockName == "" {
			return
		}
		rec := p.buildRecord(blockName, blockLines, section == "ERRORS")
		if isTimeout(rec.Message) {
			f.timedOut = true
		}
		f.add(rec)
		blockName, blockLines = "", nil
	}

	for _, raw := range lines {
		line := strings.TrimRight(raw, " ")
		trimmed := strings.TrimSpace(line)

		if m := pytestSectionRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			name := strings.TrimSpace(m[1])
			switch {
			case strings.EqualFold(name, "FAILURES"):
				section = "FAILURES"
			case strings.EqualFold(name, "ERRORS"):
				section = "ERRORS"
			case strings.EqualFold(name, "short test summary info"):
				section = "summary"
			default:
				// Trailing result banner ("2 failed, 3 passed in 0.12s") or
				// warnings summary: closes whatever section was open.
				section = ""
			}
			continue
		}

		switch section {
		case "FAILURES", "ERRORS":
			if m := pytestOpenerRe.FindStringSubmatch(trimmed); m != nil {
				flush()
				blockName = strings.TrimSpace(m[1])
				continue
			}
			if blockName != "" {
				blockLines = append(blockLines, line)
			}
		case "summary":
			// Terse fallback: only consulted when the rich sections
			// produced nothing for these failures.
			if m := pytestTerseRe.FindStringSubmatch(trimmed); m != nil {
				p.addTerse(f, m[1], m[2], m[3])
			} else if m := pytestErrorRe.FindStringSubmatch(trimmed); m != nil {
				p.addTerse(f, m[1], m[2], m[3])
			}
		}

		if m := pytestCovRe.FindStringSubmatch(trimmed); m != nil {
			f.add(FormattedError{
				File:     CoverageFile,
				Message:  "required test coverage of " + m[1] + "% not reached: total coverage " + m[2] + "%",
				Severity: "error",
			})
		}
	}
	flush()

	return assemble(f, "test", contextHint, rerunPytest(f.records))
}

// buildRecord turns one rich failure block into a record. The location is
// the last "file.py:NN:" marker in the block (pytest prints the innermost
// frame last); the message joins the E-prefixed assertion lines, falling
// back to the marker's trailing text.
func (p *PytestExtractor) buildRecord(name string, block []string, runtimeErr bool) FormattedError {
	rec := FormattedError{Context: name, Severity: "error"}

	var eLines []string
	var lastLocMsg string
	for _, line := range block {
		trimmed := strings.TrimSpace(line)
		if m := pytestLocRe.FindStringSubmatch(trimmed); m != nil {
			rec.File = m[1]
			rec.Line = countOf(m[2])
			lastLocMsg = m[3]
			continue
		}
		if strings.HasPrefix(line, "E ") || trimmed == "E" || strings.HasPrefix(trimmed, "E   ") {
			eLines = append(eLines, strings.TrimSpace(strings.TrimPrefix(trimmed, "E")))
		}
	}

	rec.Message = joinMessage(eLines)
	if rec.Message == "" && lastLocMsg != "" {
		rec.Message = lastLocMsg
	}
	if rec.Message == "" {
		if runtimeErr {
			rec.Message = "error during collection or setup of " + name
		} else {
			rec.Message = "test " + name + " failed"
		}
	}
	return rec
}

func (p *PytestExtractor) addTerse(f *findings, file, test, msg string) {
	// Rich records win: skip summary lines describing a failure we already
	// have a detailed block for. Summary node IDs separate class and test
	// with "::" where the rich opener uses "."; normalize before comparing.
	norm := strings.ReplaceAll(test, "::", ".")
	for _, existing := range f.records {
		if test != "" && existing.Context != "" && strings.Contains(norm, existing.Context) {
			return
		}
		if test == "" && (existing.File == file || strings.Contains(existing.Context, file)) {
			return
		}
	}
	if msg == "" {
		msg = "test " + test + " failed"
	}
	f.add(FormattedError{
		File:     file,
		Context:  test,
		Message:  msg,
		Severity: "error",
	})
	if isTimeout(msg) {
		f.timedOut = true
	}
}

func rerunPytest(records []FormattedError) string {
	if len(records) != 1 || records[0].File == "" || records[0].File == CoverageFile {
		return "pytest"
	}
	r := records[0]
	if r.Context != "" && !strings.Contains(r.Context, " ") {
		return "pytest " + r.File + "::" + r.Context
	}
	return "pytest " + r.File
}

func (p *PytestExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "rich-failure",
			Description: "one assertion failure with rich block and terse summary",
			Input: "=================================== FAILURES ===================================\n" +
				"______________________________ test_total_count _______________________________\n" +
				"\n" +
				"    def test_total_count():\n" +
				">       assert count_errors(LOG) == 3\n" +
				"E       assert 2 == 3\n" +
				"E        +  where 2 = count_errors('...')\n" +
				"\n" +
				"tests/test_counts.py:18: AssertionError\n" +
				"=========================== short test summary info ============================\n" +
				"FAILED tests/test_counts.py::test_total_count - assert 2 == 3\n" +
				"========================= 1 failed, 4 passed in 0.21s ==========================\n",
			WantErrors:   1,
			WantPatterns: []string{"tests/test_counts.py", "assert 2 == 3"},
		},
		{
			Name:        "collection-error",
			Description: "import error in the ERRORS section",
			Input: "==================================== ERRORS ====================================\n" +
				"__________________ ERROR collecting tests/test_routes.py ______________________\n" +
				"ImportError while importing test module 'tests/test_routes.py'.\n" +
				"tests/test_routes.py:3: ModuleNotFoundError\n" +
				"E   ModuleNotFoundError: No module named 'flask'\n" +
				"=========================== short test summary info ============================\n" +
				"ERROR tests/test_routes.py\n" +
				"!!!!!!!!!!!!!!!!!!!! Interrupted: 1 error during collection !!!!!!!!!!!!!!!!!!!!\n",
			WantErrors:   1,
			WantPatterns: []string{"ModuleNotFoundError", "tests/test_routes.py"},
		},
		{
			Name:        "coverage-threshold",
			Description: "aggregate coverage record with sentinel file",
			Input: "========================= 12 passed in 1.02s ==========================\n" +
				"FAIL Required test coverage of 80% not reached. Total coverage: 73.12%\n",
			WantErrors:   1,
			WantPatterns: []string{"coverage", "73.12%"},
		},
		{
			Name:        "all-passing",
			Description: "passing run must produce nothing",
			Input:       "========================= 5 passed in 0.10s ==========================\n",
			WantErrors:  0,
		},
	}
}
