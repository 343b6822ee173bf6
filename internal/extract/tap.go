package extract

import (
	"regexp"
	"strings"
)

// TAPExtractor parses Test Anything Protocol streams: the version header
// and plan line, "not ok" failure lines, their indented YAML diagnostic
// blocks, and "Bail out!" as a runtime record.
type TAPExtractor struct{}

func (t *TAPExtractor) Meta() Meta {
	return Meta{
		Name:        "tap",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "TAP (Test Anything Protocol) streams",
		Tags:        []string{"test", "tap"},
		Priority:    95,
		Threshold:   85,
		Hints: Hints{
			AnyOf: []string{"not ok", "TAP version", "Bail out!"},
		},
	}
}

var (
	tapVersionRe = regexp.MustCompile(`^TAP version \d+`)
	tapPlanRe    = regexp.MustCompile(`^1\.\.(\d+)`)
	// The point number is optional: "not ok - description" is valid TAP.
	tapNotOkRe   = regexp.MustCompile(`^not ok(?: (\d+))?(?: -? ?(.*))?$`)
	tapYAMLKeyRe = regexp.MustCompile(`^\s+([\w]+):\s*(.*)$`)
)

func (t *TAPExtractor) Detect(output string) DetectionResult {
	hasVersion := tapVersionRe.MatchString(output)
	hasPlan := tapPlanRe.MatchString(firstMatchingLine(output, tapPlanRe))
	hasNotOk := strings.Contains(output, "\nnot ok ") || strings.HasPrefix(output, "not ok ")
	hasBail := strings.Contains(output, "Bail out!")

	switch {
	case hasVersion && (hasNotOk || hasBail):
		return DetectionResult{
			Confidence: ConfidenceStructural,
			Patterns:   []string{"TAP version", "not ok"},
			Reason:     "TAP version header with failing test points",
		}
	case hasPlan && hasNotOk:
		return DetectionResult{
			Confidence: ConfidenceDistinctive,
			Patterns:   []string{"1..N plan", "not ok"},
			Reason:     "TAP plan line with failing test points",
		}
	case hasNotOk:
		return DetectionResult{
			Confidence: ConfidenceSingle,
			Patterns:   []string{"not ok"},
			Reason:     "TAP failure lines without header",
		}
	}
	return noMatch()
}

func (t *TAPExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	lines := strings.Split(output, "\n")

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := tapNotOkRe.FindStringSubmatch(line); m != nil {
			desc := strings.TrimSpace(m[2])
			if directive := tapDirective(desc); directive == "SKIP" || directive == "TODO" {
				continue // skipped and expected-failure points are not failures
			}
			rec, consumed := t.scanDiagnostics(lines, i+1, desc)
			if isTimeout(rec.Message) {
				f.timedOut = true
			}
			f.add(rec)
			i += consumed
			continue
		}
		if strings.HasPrefix(line, "Bail out!") {
			reason := strings.TrimSpace(strings.TrimPrefix(line, "Bail out!"))
			if reason == "" {
				reason = "test run aborted"
			}
			f.add(FormattedError{Message: "Bail out! " + reason, Severity: "error"})
			f.issue("run bailed out before completing the plan")
		}
	}

	return assemble(f, "test", contextHint, "")
}

// scanDiagnostics consumes the indented YAML block ("---" ... "...") that
// may follow a "not ok" line, pulling out message, location, and severity.
func (t *TAPExtractor) scanDiagnostics(lines []string, start int, desc string) (FormattedError, int) {
	rec := FormattedError{Context: desc, Severity: "error"}

	consumed := 0
	if start >= len(lines) || strings.TrimSpace(lines[start]) != "---" {
		rec.Message = desc
		if rec.Message == "" {
			rec.Message = "test point failed"
		}
		return rec, 0
	}

	var stack []string
	for j := start + 1; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j])
		consumed = j - start + 1
		if trimmed == "..." {
			break
		}
		m := tapYAMLKeyRe.FindStringSubmatch(lines[j])
		if m == nil {
			stack = append(stack, lines[j])
			continue
		}
		val := strings.Trim(m[2], `'"`)
		switch m[1] {
		case "message":
			rec.Message = val
		case "severity":
			if val == "warning" || val == "error" {
				rec.Severity = val
			}
		case "file":
			rec.File = val
		case "line":
			rec.Line = countOf(val)
		case "column":
			rec.Column = countOf(val)
		case "at":
			if file, ln, col, ok := parseLocation(val); ok {
				rec.File, rec.Line, rec.Column = file, ln, col
			}
		}
	}

	if rec.File == "" {
		if file, ln, col, ok := frameLocation(stack); ok {
			rec.File, rec.Line, rec.Column = file, ln, col
		}
	}
	if rec.Message == "" {
		rec.Message = desc
	}
	if rec.Message == "" {
		rec.Message = "test point failed"
	}
	return rec, consumed
}

func tapDirective(desc string) string {
	upper := strings.ToUpper(desc)
	if i := strings.Index(upper, "# SKIP"); i >= 0 {
		return "SKIP"
	}
	if i := strings.Index(upper, "# TODO"); i >= 0 {
		return "TODO"
	}
	return ""
}

func (t *TAPExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "yaml-diagnostics",
			Description: "failing point with YAML diagnostic block",
			Input: "TAP version 13\n" +
				"1..3\n" +
				"ok 1 - parses the plan line\n" +
				"not ok 2 - counts failures\n" +
				"  ---\n" +
				"  message: 'expected 3 failures, found 2'\n" +
				"  severity: error\n" +
				"  at: 'test/count.test.js:58:11'\n" +
				"  ...\n" +
				"ok 3 - ignores skipped points # SKIP pending fix\n",
			WantErrors:   1,
			WantPatterns: []string{"test/count.test.js", "expected 3 failures"},
		},
		{
			Name:        "bail-out",
			Description: "bail out becomes a runtime record",
			Input: "TAP version 13\n" +
				"1..10\n" +
				"ok 1 - connects\n" +
				"Bail out! database fixture unavailable\n",
			WantErrors:   1,
			WantPatterns: []string{"database fixture unavailable"},
		},
		{
			Name:        "all-passing",
			Description: "passing stream must produce nothing",
			Input:       "TAP version 13\n1..2\nok 1 - first\nok 2 - second\n",
			WantErrors:  0,
		},
	}
}
