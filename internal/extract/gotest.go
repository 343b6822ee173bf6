package extract

import (
	"regexp"
	"strings"
)

// GoTestExtractor parses `go test` output: per-test failure blocks, package
// FAIL lines, and panics surfaced as runtime records.
type GoTestExtractor struct{}

func (g *GoTestExtractor) Meta() Meta {
	return Meta{
		Name:        "go-test",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "go test and gotestsum output",
		Tags:        []string{"test", "go"},
		Priority:    85,
		Threshold:   85,
		Hints: Hints{
			AnyOf: []string{"--- FAIL:", "=== FAIL:", "FAIL\t", "panic:"},
		},
	}
}

var (
	goFailOpenerRe   = regexp.MustCompile(`^\s*--- FAIL: (\S+) \([\d.]+s\)`)
	gotestsumFailRe  = regexp.MustCompile(`^\s*=== FAIL: (\S+) (\S+) \([\d.]+s\)`)
	goPackageFailRe  = regexp.MustCompile(`^FAIL\s+(\S+)\s+[\d.]+s`)
	goTestLocationRe = regexp.MustCompile(`^\s+([\w./\\-]+\.go):(\d+): ?(.*)`)
	goPanicRe        = regexp.MustCompile(`^panic: (.+)`)
	goFrameRe        = regexp.MustCompile(`^\s+(\S+\.go):(\d+) \+0x`)
)

func (g *GoTestExtractor) Detect(output string) DetectionResult {
	hasFail := strings.Contains(output, "--- FAIL:") || strings.Contains(output, "=== FAIL:")
	hasPkgFail := goPackageFailRe.MatchString(output) || strings.Contains(output, "\nFAIL\t") || strings.HasPrefix(output, "FAIL\t")
	hasPanic := strings.Contains(output, "panic:") && strings.Contains(output, "goroutine")

	switch {
	case hasFail && hasPkgFail:
		return DetectionResult{
			Confidence: ConfidenceDistinctive,
			Patterns:   []string{"--- FAIL:", "FAIL <pkg>"},
			Reason:     "go test failure marker with package FAIL line",
		}
	case hasFail:
		return DetectionResult{
			Confidence: ConfidenceSingle,
			Patterns:   []string{"--- FAIL:"},
			Reason:     "go test failure marker",
		}
	case hasPanic && hasPkgFail:
		return DetectionResult{
			Confidence: ConfidenceStrongMulti,
			Patterns:   []string{"panic:", "FAIL <pkg>"},
			Reason:     "go panic with package FAIL line",
		}
	}
	return noMatch()
}

func (g *GoTestExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	lines := strings.Split(output, "\n")

	var pkg string
	// Package FAIL lines arrive after their tests; collect them first so
	// records can carry the package as context.
	for _, line := range lines {
		if m := goPackageFailRe.FindStringSubmatch(line); m != nil {
			pkg = m[1]
			break
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := gotestsumFailRe.FindStringSubmatch(line); m != nil {
			rec, consumed := g.scanFailureBlock(lines, i+1, m[2], m[1])
			f.add(rec)
			if isTimeout(rec.Message) {
				f.timedOut = true
			}
			i += consumed
			continue
		}
		if m := goFailOpenerRe.FindStringSubmatch(line); m != nil {
			rec, consumed := g.scanFailureBlock(lines, i+1, m[1], pkg)
			f.add(rec)
			if isTimeout(rec.Message) {
				f.timedOut = true
			}
			i += consumed
			continue
		}
		if m := goPanicRe.FindStringSubmatch(line); m != nil {
			rec := g.scanPanic(lines, i, m[1], pkg)
			f.add(rec)
			f.timedOut = f.timedOut || isTimeout(rec.Message)
			// A panic aborts the run; everything after belongs to its trace.
			break
		}
	}

	if len(f.records) > 0 {
		for _, e := range f.records {
			if e.File == "" {
				f.issue("no file location found for some failures")
				break
			}
		}
	}
	return assemble(f, "test", contextHint, rerunGoTest(f.records))
}

// scanFailureBlock collects the indented continuation lines that follow a
// "--- FAIL:" opener: the first file:line marker becomes the location and
// the remaining text the message, within the continuation budget.
func (g *GoTestExtractor) scanFailureBlock(lines []string, start int, test, pkg string) (FormattedError, int) {
	rec := FormattedError{Context: test, Severity: "error"}
	if pkg != "" {
		rec.Context = pkg + "." + test
	}

	var msg []string
	consumed := 0
	for j := start; j < len(lines); j++ {
		line := lines[j]
		trimmed := strings.TrimSpace(line)
		if goFailOpenerRe.MatchString(line) || gotestsumFailRe.MatchString(line) ||
			goPackageFailRe.MatchString(line) || strings.HasPrefix(line, "ok ") ||
			strings.HasPrefix(line, "=== RUN") || strings.HasPrefix(line, "--- PASS") ||
			trimmed == "FAIL" || trimmed == "PASS" {
			break
		}
		consumed++
		if m := goTestLocationRe.FindStringSubmatch(line); m != nil {
			if rec.File == "" {
				rec.File = m[1]
				rec.Line = countOf(m[2])
			}
			if m[3] != "" {
				msg = append(msg, m[3])
			}
			continue
		}
		if strings.TrimSpace(line) != "" {
			msg = append(msg, line)
		}
	}

	rec.Message = joinMessage(msg)
	if rec.Message == "" {
		rec.Message = "test " + test + " failed"
	}
	return rec, consumed
}

// scanPanic builds a runtime record from a panic line and its goroutine
// trace, preferring the first non-runtime frame as the location.
func (g *GoTestExtractor) scanPanic(lines []string, start int, msg, pkg string) FormattedError {
	rec := FormattedError{
		Message:  "panic: " + msg,
		Severity: "error",
		Context:  pkg,
	}
	for j := start + 1; j < len(lines); j++ {
		m := goFrameRe.FindStringSubmatch(lines[j])
		if m == nil {
			continue
		}
		if isInternalFrame(m[1]) {
			if rec.File == "" {
				rec.File = m[1]
				rec.Line = countOf(m[2])
			}
			continue
		}
		rec.File = m[1]
		rec.Line = countOf(m[2])
		break
	}
	return rec
}

func rerunGoTest(records []FormattedError) string {
	if len(records) != 1 || records[0].Context == "" {
		return "go test ./..."
	}
	name := records[0].Context
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return "go test -run '" + name + "' ./..."
}

func (g *GoTestExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "assertion-failure",
			Description: "single failing test with file:line marker",
			Input: "=== RUN   TestParseLocation\n" +
				"--- FAIL: TestParseLocation (0.00s)\n" +
				"    assemble_test.go:42: expected line 12, got 0\n" +
				"FAIL\n" +
				"FAIL\tgithub.com/lucasnoah/sift/internal/extract\t0.041s\n",
			WantErrors:   1,
			WantPatterns: []string{"assemble_test.go", "expected line 12"},
		},
		{
			Name:        "panic",
			Description: "panic surfaced as a runtime record",
			Input: "=== RUN   TestBoom\n" +
				"panic: runtime error: index out of range [3] with length 2\n\n" +
				"goroutine 18 [running]:\n" +
				"testing.tRunner.func1.2({0x104d, 0x1f})\n" +
				"\ttesting/testing.go:1631 +0x1c4\n" +
				"github.com/acme/app.Slice(...)\n" +
				"\tapp/slice.go:17 +0x88\n" +
				"FAIL\tgithub.com/acme/app\t0.012s\n",
			WantErrors:   1,
			WantPatterns: []string{"panic", "slice.go"},
		},
		{
			Name:        "all-passing",
			Description: "passing run must produce nothing",
			Input:       "=== RUN   TestOK\n--- PASS: TestOK (0.00s)\nPASS\nok  \tgithub.com/acme/app\t0.01s\n",
			WantErrors:  0,
		},
	}
}
