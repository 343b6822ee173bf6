package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// PlaywrightExtractor parses Playwright's list reporter: numbered failure
// records carrying a browser project tag and a spec location in the opener
// itself, followed by error detail and frames. Timeout failures get the
// dedicated timeout guidance.
type PlaywrightExtractor struct{}

func (p *PlaywrightExtractor) Meta() Meta {
	return Meta{
		Name:        "playwright",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "playwright test list reporter output",
		Tags:        []string{"test", "e2e"},
		Priority:    75,
		Threshold:   85,
		Hints: Hints{
			AnyOf: []string{"[chromium]", "[firefox]", "[webkit]", "playwright"},
		},
	}
}

var (
	playwrightOpenerRe = regexp.MustCompile(`^\s*\d+\) \[(\w+)\] › ([\w./\\-]+\.[\w]+):(\d+):(\d+) › (.+?) ─*$`)
	playwrightFailedRe = regexp.MustCompile(`(\d+) failed`)
	playwrightFrameRe  = regexp.MustCompile(`^\s+at .*\(?([\w./\\-]+\.[\w]+):(\d+):(\d+)\)?`)
)

func (p *PlaywrightExtractor) Detect(output string) DetectionResult {
	hasOpener := playwrightOpenerRe.MatchString(firstMatchingLine(output, playwrightOpenerRe))
	hasFailed := playwrightFailedRe.MatchString(output)

	switch {
	case hasOpener:
		return DetectionResult{
			Confidence: ConfidenceDistinctive,
			Patterns:   []string{"[browser] › spec:line:col"},
			Reason:     "playwright project-tagged failure records",
		}
	case hasFailed && strings.Contains(output, "playwright"):
		return DetectionResult{
			Confidence: ConfidenceSingle,
			Patterns:   []string{"N failed", "playwright"},
			Reason:     "failed count in playwright output",
		}
	}
	return noMatch()
}

func (p *PlaywrightExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	lines := strings.Split(output, "\n")

	wantFailed := -1
	if m := playwrightFailedRe.FindStringSubmatch(output); m != nil {
		wantFailed = countOf(m[1])
	}

	var rec *FormattedError
	var msg []string
	var frames []string

	flush := func() {
		if rec == nil {
			return
		}
		rec.Message = joinMessage(msg)
		if rec.Message == "" {
			rec.Message = "test " + rec.Context + " failed"
		}
		// A frame inside the test body is more precise than the opener's
		// declaration site.
		if file, ln, col, ok := frameLocation(frames); ok {
			rec.File, rec.Line, rec.Column = file, ln, col
		}
		if isTimeout(rec.Message) {
			f.timedOut = true
		}
		f.add(*rec)
		rec, msg, frames = nil, nil, nil
	}

	for _, line := range lines {
		if m := playwrightOpenerRe.FindStringSubmatch(line); m != nil {
			flush()
			rec = &FormattedError{
				File:     m[2],
				Line:     countOf(m[3]),
				Column:   countOf(m[4]),
				Context:  "[" + m[1] + "] " + strings.TrimSpace(m[5]),
				Severity: "error",
			}
			continue
		}
		if rec == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case playwrightFrameRe.MatchString(line) || strings.HasPrefix(trimmed, "at "):
			frames = append(frames, line)
		case playwrightFailedRe.MatchString(trimmed) || strings.HasSuffix(trimmed, "passed"):
			flush()
		default:
			msg = append(msg, line)
		}
	}
	flush()

	if wantFailed >= 0 && wantFailed != len(f.records) {
		f.issue("failed count disagrees with parsed records")
	}
	return assemble(f, "test", contextHint, rerunPlaywright(f.records))
}

func rerunPlaywright(records []FormattedError) string {
	if len(records) != 1 || records[0].File == "" {
		return "npx playwright test"
	}
	r := records[0]
	if r.Line > 0 {
		return "npx playwright test " + r.File + ":" + strconv.Itoa(r.Line)
	}
	return "npx playwright test " + r.File
}

func (p *PlaywrightExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "expect-failure",
			Description: "single expect failure with opener location",
			Input: "Running 4 tests using 2 workers\n" +
				"\n" +
				"  1) [chromium] › e2e/login.spec.ts:12:5 › login › redirects to dashboard ─────────\n" +
				"\n" +
				"    Error: expect(page).toHaveURL(expected)\n" +
				"\n" +
				"    Expected string: \"/dashboard\"\n" +
				"    Received string: \"/login?error=1\"\n" +
				"\n" +
				"      at e2e/login.spec.ts:15:20\n" +
				"\n" +
				"  1 failed\n" +
				"  3 passed (8.2s)\n",
			WantErrors:   1,
			WantPatterns: []string{"e2e/login.spec.ts", "toHaveURL"},
		},
		{
			Name:        "timeout",
			Description: "timeout failure selects the timeout guidance",
			Input: "Running 2 tests using 1 worker\n" +
				"\n" +
				"  1) [webkit] › e2e/upload.spec.ts:7:3 › upload › accepts large files ──────────────\n" +
				"\n" +
				"    Test timeout of 30000ms exceeded.\n" +
				"\n" +
				"  1 failed\n" +
				"  1 passed (31.0s)\n",
			WantErrors:   1,
			WantPatterns: []string{"e2e/upload.spec.ts", "timeout"},
		},
		{
			Name:        "all-passing",
			Description: "passing run must produce nothing",
			Input:       "Running 4 tests using 2 workers\n\n  4 passed (6.1s)\n",
			WantErrors:  0,
		},
	}
}
