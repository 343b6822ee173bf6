package extract

import (
	"regexp"
	"strings"
)

// VitestExtractor parses vitest's default reporter: the "Failed Tests"
// banner region with FAIL openers, serialized assertion errors, and "❯"
// location frames.
type VitestExtractor struct{}

func (v *VitestExtractor) Meta() Meta {
	return Meta{
		Name:        "vitest",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "vitest default reporter output",
		Tags:        []string{"test", "javascript"},
		Priority:    70,
		Threshold:   85,
		Hints: Hints{
			AnyOf: []string{"❯", "⎯", "FAIL "},
		},
	}
}

var (
	vitestBannerRe = regexp.MustCompile(`⎯+\s*Failed Tests (\d+)\s*⎯+`)
	vitestOpenerRe = regexp.MustCompile(`^\s*FAIL\s+([\w./\\-]+\.[\w]+)(?:\s*>\s*(.+))?$`)
	vitestFrameRe  = regexp.MustCompile(`^\s*❯\s+(?:\S+\s+)?([\w./\\-]+\.[\w]+):(\d+):(\d+)`)
	vitestTestsRe  = regexp.MustCompile(`Tests\s+(\d+) failed`)
)

func (v *VitestExtractor) Detect(output string) DetectionResult {
	hasBanner := vitestBannerRe.MatchString(output)
	hasFrame := strings.Contains(output, "❯")
	hasFail := vitestOpenerRe.MatchString(firstMatchingLine(output, vitestOpenerRe))

	switch {
	case hasBanner:
		return DetectionResult{
			Confidence: ConfidenceDistinctive,
			Patterns:   []string{"Failed Tests banner"},
			Reason:     "vitest failed-tests banner",
		}
	case hasFrame && hasFail:
		return DetectionResult{
			Confidence: ConfidenceStrongMulti,
			Patterns:   []string{"❯ frame", "FAIL opener"},
			Reason:     "vitest location frames with FAIL openers",
		}
	}
	return noMatch()
}

func (v *VitestExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	lines := strings.Split(output, "\n")

	wantFailed := -1
	if m := vitestBannerRe.FindStringSubmatch(output); m != nil {
		wantFailed = countOf(m[1])
	} else if m := vitestTestsRe.FindStringSubmatch(output); m != nil {
		wantFailed = countOf(m[1])
	}

	var rec *FormattedError
	var msg []string

	flush := func() {
		if rec == nil {
			return
		}
		rec.Message = joinMessage(msg)
		if rec.Message == "" {
			rec.Message = "test " + rec.Context + " failed"
		}
		if isTimeout(rec.Message) {
			f.timedOut = true
		}
		f.add(*rec)
		rec, msg = nil, nil
	}

	for _, line := range lines {
		if m := vitestOpenerRe.FindStringSubmatch(line); m != nil {
			flush()
			rec = &FormattedError{File: m[1], Context: m[2], Severity: "error"}
			continue
		}
		if rec == nil {
			continue
		}
		if m := vitestFrameRe.FindStringSubmatch(line); m != nil {
			// First frame wins; vitest prints the assertion site first.
			if rec.Line == 0 {
				rec.File = m[1]
				rec.Line = countOf(m[2])
				rec.Column = countOf(m[3])
			}
			continue
		}
		if strings.Contains(line, "⎯⎯") {
			// Next banner (per-failure separators) closes the record.
			flush()
			continue
		}
		msg = append(msg, line)
	}
	flush()

	if wantFailed >= 0 && wantFailed != len(f.records) {
		f.issue("failed-tests banner disagrees with parsed records")
	}
	return assemble(f, "test", contextHint, rerunVitest(f.records))
}

func rerunVitest(records []FormattedError) string {
	if len(records) != 1 || records[0].File == "" {
		return "npx vitest run"
	}
	return "npx vitest run " + records[0].File
}

func (v *VitestExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "assertion-failure",
			Description: "one failing test with frame location",
			Input: "⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯ Failed Tests 1 ⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯\n" +
				"\n" +
				" FAIL  src/digest.test.ts > digest > caps the list at ten entries\n" +
				"AssertionError: expected 11 to be 10 // Object.is equality\n" +
				"\n" +
				"- Expected\n" +
				"+ Received\n" +
				"\n" +
				" ❯ src/digest.test.ts:27:31\n" +
				"\n" +
				"⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯⎯\n" +
				"\n" +
				" Test Files  1 failed (3)\n" +
				"      Tests  1 failed | 11 passed (12)\n",
			WantErrors:   1,
			WantPatterns: []string{"src/digest.test.ts", "AssertionError"},
		},
		{
			Name:        "all-passing",
			Description: "passing run must produce nothing",
			Input:       " ✓ src/digest.test.ts (12)\n\n Test Files  3 passed (3)\n      Tests  12 passed (12)\n",
			WantErrors:  0,
		},
	}
}
