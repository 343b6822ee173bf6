package extract

import (
	"regexp"
	"strings"
)

// TSCExtractor parses TypeScript compiler diagnostics. The "error TSxxxx:"
// code is one of the lowest-collision markers in the suite, so this
// extractor sits near the top of the priority order.
type TSCExtractor struct{}

func (t *TSCExtractor) Meta() Meta {
	return Meta{
		Name:        "tsc",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "tsc compiler diagnostics (plain and pretty formats)",
		Tags:        []string{"compiler", "typescript"},
		Priority:    90,
		Threshold:   90,
		Hints: Hints{
			Required: []string{"error TS"},
		},
	}
}

var (
	// Plain format: src/auth.ts(42,5): error TS2345: Argument of type...
	tscPlainRe = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): (error|warning) (TS\d+): (.+)$`)
	// Pretty format: src/auth.ts:42:5 - error TS2345: Argument of type...
	tscPrettyRe = regexp.MustCompile(`^(.+?):(\d+):(\d+) - (error|warning) (TS\d+): (.+)$`)
)

func (t *TSCExtractor) Detect(output string) DetectionResult {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if tscPlainRe.MatchString(trimmed) || tscPrettyRe.MatchString(trimmed) {
			return DetectionResult{
				Confidence: ConfidenceDistinctive,
				Patterns:   []string{"error TSxxxx:"},
				Reason:     "TypeScript diagnostic codes",
			}
		}
	}
	return noMatch()
}

func (t *TSCExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		m := tscPlainRe.FindStringSubmatch(trimmed)
		if m == nil {
			m = tscPrettyRe.FindStringSubmatch(trimmed)
		}
		if m == nil {
			continue
		}
		f.add(FormattedError{
			File:     m[1],
			Line:     countOf(m[2]),
			Column:   countOf(m[3]),
			Severity: m[4],
			Message:  m[5] + ": " + m[6],
		})
	}
	return assemble(f, "type check", contextHint, "npx tsc --noEmit")
}

func (t *TSCExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "two-diagnostics",
			Description: "plain-format diagnostics with file(line,col) markers",
			Input: "src/auth.ts(42,5): error TS2345: Argument of type 'string' is not assignable to parameter of type 'number'.\n" +
				"src/index.ts(10,3): error TS2304: Cannot find name 'foo'.\n",
			WantErrors:   2,
			WantPatterns: []string{"src/auth.ts", "TS2304"},
		},
		{
			Name:        "pretty-format",
			Description: "pretty-format diagnostic with file:line:col marker",
			Input:       "src/store.ts:7:12 - error TS2551: Property 'sizee' does not exist on type 'Cache'. Did you mean 'size'?\n",
			WantErrors:   1,
			WantPatterns: []string{"src/store.ts", "TS2551"},
		},
		{
			Name:        "clean-compile",
			Description: "no diagnostics means nothing to extract",
			Input:       "",
			WantErrors:  0,
		},
	}
}
