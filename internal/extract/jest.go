package extract

import (
	"regexp"
	"strings"
)

// JestExtractor parses jest's default reporter output: "●" failure blocks
// with expect() diffs and stack frames, suite-level runtime failures, the
// "Tests:" totals line, and global coverage-threshold violations.
type JestExtractor struct{}

func (j *JestExtractor) Meta() Meta {
	return Meta{
		Name:        "jest",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "jest default reporter output",
		Tags:        []string{"test", "javascript"},
		Priority:    65,
		Threshold:   85,
		Hints: Hints{
			AnyOf: []string{"●", "✕", "Test suite failed to run", "coverage threshold"},
		},
	}
}

var (
	jestOpenerRe  = regexp.MustCompile(`^\s*● (.+)$`)
	jestTotalsRe  = regexp.MustCompile(`^Tests:\s+(?:(\d+) failed, )?(?:\d+ skipped, )?(?:\d+ passed, )?(\d+) total`)
	jestFrameRe   = regexp.MustCompile(`^\s+at .*\(?([\w./\\-]+\.[jt]sx?):(\d+):(\d+)\)?`)
	jestCovRe     = regexp.MustCompile(`Jest: "([^"]+)" coverage threshold for (\w+) \(([\d.]+)%\) not met: ([\d.]+)%`)
	jestFailedRe  = regexp.MustCompile(`Tests:.*\d+ failed`)
	jestSuiteFail = "Test suite failed to run"
)

func (j *JestExtractor) Detect(output string) DetectionResult {
	hasOpener := strings.Contains(output, "● ")
	hasTotals := jestTotalsRe.MatchString(output) || strings.Contains(output, "\nTests:")
	hasFailedCount := jestFailedRe.MatchString(output)
	hasSuiteFail := strings.Contains(output, jestSuiteFail)

	switch {
	case hasOpener && hasFailedCount:
		return DetectionResult{
			Confidence: ConfidenceDistinctive,
			Patterns:   []string{"● <test>", "Tests: N failed"},
			Reason:     "jest failure blocks with failed totals line",
		}
	case hasSuiteFail:
		return DetectionResult{
			Confidence: ConfidenceStrongMulti,
			Patterns:   []string{"Test suite failed to run"},
			Reason:     "jest suite-level failure",
		}
	case hasOpener && hasTotals:
		return DetectionResult{
			Confidence: ConfidenceStrongMulti,
			Patterns:   []string{"● <test>", "Tests:"},
			Reason:     "jest failure blocks with totals line",
		}
	case jestCovRe.MatchString(output):
		return DetectionResult{
			Confidence: ConfidenceSingle,
			Patterns:   []string{"coverage threshold"},
			Reason:     "jest coverage threshold failure",
		}
	}
	return noMatch()
}

func (j *JestExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	lines := strings.Split(output, "\n")

	var wantFailed = -1
	var blockName string
	var blockLines []string

	flush := func() {
		if blockName == "" {
			return
		}
		rec := j.buildRecord(blockName, blockLines)
		if isTimeout(rec.Message) {
			f.timedOut = true
		}
		f.add(rec)
		blockName, blockLines = "", nil
	}

	for _, line := range lines {
		if m := jestOpenerRe.FindStringSubmatch(line); m != nil {
			flush()
			blockName = strings.TrimSpace(m[1])
			continue
		}
		if m := jestTotalsRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			if m[1] != "" {
				wantFailed = countOf(m[1])
			}
			continue
		}
		if m := jestCovRe.FindStringSubmatch(line); m != nil {
			flush()
			f.add(FormattedError{
				File:     CoverageFile,
				Message:  m[1] + " coverage threshold for " + m[2] + " (" + m[3] + "%) not met: " + m[4] + "%",
				Severity: "error",
			})
			continue
		}
		if blockName != "" {
			blockLines = append(blockLines, line)
		}
	}
	flush()

	if wantFailed >= 0 && wantFailed != len(f.records) {
		f.issue("totals line disagrees with parsed failure blocks")
	}
	return assemble(f, "test", contextHint, rerunJest(f.records))
}

// buildRecord assembles one "●" block: message from the expect() lines,
// location from the first user-code stack frame.
func (j *JestExtractor) buildRecord(name string, block []string) FormattedError {
	rec := FormattedError{Context: name, Severity: "error"}
	if strings.Contains(name, jestSuiteFail) || name == jestSuiteFail {
		rec.Context = ""
	}

	var msg []string
	var frames []string
	for _, line := range block {
		if jestFrameRe.MatchString(line) || strings.HasPrefix(strings.TrimSpace(line), "at ") {
			frames = append(frames, line)
			continue
		}
		msg = append(msg, line)
	}
	rec.Message = joinMessage(msg)
	if rec.Message == "" {
		rec.Message = "test " + name + " failed"
	}
	if file, ln, col, ok := frameLocation(frames); ok {
		rec.File, rec.Line, rec.Column = file, ln, col
	}
	return rec
}

func rerunJest(records []FormattedError) string {
	if len(records) != 1 || records[0].File == "" || records[0].File == CoverageFile {
		return "npx jest"
	}
	return "npx jest " + records[0].File
}

func (j *JestExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "expect-failure",
			Description: "single expect() failure with stack frame",
			Input: "FAIL src/router.test.ts\n" +
				"  ● routes › falls back to generic handler\n" +
				"\n" +
				"    expect(received).toBe(expected) // Object.is equality\n" +
				"\n" +
				"    Expected: \"generic\"\n" +
				"    Received: \"mocha\"\n" +
				"\n" +
				"      at Object.<anonymous> (src/router.test.ts:48:22)\n" +
				"      at Promise.then.completed (node_modules/jest-circus/build/utils.js:298:28)\n" +
				"\n" +
				"Tests:       1 failed, 7 passed, 8 total\n",
			WantErrors:   1,
			WantPatterns: []string{"src/router.test.ts", "Expected"},
		},
		{
			Name:        "suite-failed-to-run",
			Description: "runtime record: module resolution failure",
			Input: "FAIL src/store.test.ts\n" +
				"  ● Test suite failed to run\n" +
				"\n" +
				"    Cannot find module './cache' from 'src/store.ts'\n" +
				"\n" +
				"      at Resolver.resolveModule (node_modules/jest-resolve/build/resolver.js:324:11)\n" +
				"\n" +
				"Tests:       0 total\n",
			WantErrors:   1,
			WantPatterns: []string{"Cannot find module"},
		},
		{
			Name:        "all-passing",
			Description: "passing run must produce nothing",
			Input:       "PASS src/router.test.ts\n\nTests:       8 passed, 8 total\n",
			WantErrors:  0,
		},
	}
}
