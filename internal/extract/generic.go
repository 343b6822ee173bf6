package extract

import (
	"regexp"
	"strings"
)

// GenericExtractor is the fallback when no specialized extractor qualifies.
// It never fails to produce a result: it scans for error-looking lines with
// optional file:line markers and otherwise reports nothing.
type GenericExtractor struct{}

func (g *GenericExtractor) Meta() Meta {
	return Meta{
		Name:        "generic",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "fallback extractor for unrecognized tool output",
		Tags:        []string{"fallback"},
		Priority:    0,
		Threshold:   0,
	}
}

var genericErrorLineRe = regexp.MustCompile(`(?i)\b(error|failed|failure|exception|fatal|panic)\b`)

// genericNoise filters lines that contain error wording but describe
// success or shell echo, not a failure.
var genericNoise = regexp.MustCompile(`(?i)(0 (errors?|failures?|failed)|no errors?|without errors?|errors?: 0)`)

func (g *GenericExtractor) Detect(output string) DetectionResult {
	if genericErrorLineRe.MatchString(output) && !onlyNoise(output) {
		return DetectionResult{
			Confidence: ConfidenceGeneric,
			Patterns:   []string{"error-wording"},
			Reason:     "generic error wording present",
		}
	}
	return DetectionResult{
		Confidence: ConfidenceFallback,
		Patterns:   []string{},
		Reason:     "no specific format matched; generic fallback",
	}
}

func onlyNoise(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if genericErrorLineRe.MatchString(line) && !genericNoise.MatchString(line) {
			return false
		}
	}
	return true
}

func (g *GenericExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || genericNoise.MatchString(trimmed) {
			continue
		}
		// An exception-class label (AssertionError:, ZeroDivisionError:)
		// marks a failure line even without generic error wording.
		class := errorType(trimmed)
		if class == "" && !genericErrorLineRe.MatchString(trimmed) {
			continue
		}
		e := FormattedError{Message: trimmed, Context: class, Severity: "error"}
		if file, ln, col, ok := parseLocation(trimmed); ok {
			e.File, e.Line, e.Column = file, ln, col
		}
		if isTimeout(trimmed) {
			f.timedOut = true
		}
		f.add(e)
	}
	if len(f.records) > 0 {
		f.issue("generic extraction: line-level heuristics only")
	}
	return assemble(f, "error", contextHint, "")
}

func (g *GenericExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "make-failure",
			Description: "untyped build tool output with error lines",
			Input: "make: entering directory 'build'\n" +
				"cc -o app main.c\n" +
				"main.c:14:2: error: expected ';' before 'return'\n" +
				"make: *** [Makefile:12: app] Error 1\n",
			WantErrors:   2,
			WantPatterns: []string{"main.c", "Error 1"},
		},
		{
			Name:        "clean-output",
			Description: "successful run with no error wording",
			Input:       "compiling...\nall targets up to date\n",
			WantErrors:  0,
		},
	}
}
