package extract

import (
	"regexp"
	"strings"
)

// ESLintExtractor parses eslint's stylish reporter: a path heading per
// file, indented "line:col severity message rule" findings under it, and a
// "✖ N problems" summary used as a cross-check.
type ESLintExtractor struct{}

func (e *ESLintExtractor) Meta() Meta {
	return Meta{
		Name:        "eslint",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "eslint stylish reporter output",
		Tags:        []string{"lint", "javascript"},
		Priority:    60,
		Threshold:   85,
		Hints: Hints{
			AnyOf: []string{"✖", "problem", "eslint"},
		},
	}
}

var (
	eslintFindingRe = regexp.MustCompile(`^\s+(\d+):(\d+)\s+(error|warning)\s+(.+?)(?:\s\s+([\w@/-]+))?$`)
	eslintSummaryRe = regexp.MustCompile(`✖ (\d+) problems? \((\d+) errors?, (\d+) warnings?\)`)
	eslintPathRe    = regexp.MustCompile(`^[\w./\\-]+\.[\w]+$`)
)

func (e *ESLintExtractor) Detect(output string) DetectionResult {
	hasSummary := eslintSummaryRe.MatchString(output)
	hasFinding := eslintFindingRe.MatchString(firstMatchingLine(output, eslintFindingRe))

	switch {
	case hasSummary && hasFinding:
		if m := eslintSummaryRe.FindStringSubmatch(output); m != nil && countOf(m[1]) == 0 {
			return noMatch()
		}
		return DetectionResult{
			Confidence: ConfidenceDistinctive,
			Patterns:   []string{"✖ N problems", "line:col severity message rule"},
			Reason:     "eslint stylish summary with findings",
		}
	case hasFinding && strings.Contains(output, "eslint"):
		return DetectionResult{
			Confidence: ConfidenceStrongMulti,
			Patterns:   []string{"line:col severity message"},
			Reason:     "eslint finding lines",
		}
	}
	return noMatch()
}

func (e *ESLintExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	lines := strings.Split(output, "\n")

	wantProblems := -1
	if m := eslintSummaryRe.FindStringSubmatch(output); m != nil {
		wantProblems = countOf(m[1])
	}

	currentFile := ""
	for _, line := range lines {
		if m := eslintFindingRe.FindStringSubmatch(line); m != nil && currentFile != "" {
			msg := strings.TrimSpace(m[4])
			if m[5] != "" {
				msg += " (" + m[5] + ")"
			}
			f.add(FormattedError{
				File:     currentFile,
				Line:     countOf(m[1]),
				Column:   countOf(m[2]),
				Severity: m[3],
				Message:  msg,
			})
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == line && eslintPathRe.MatchString(trimmed) {
			currentFile = trimmed
		}
	}

	if wantProblems >= 0 && wantProblems != len(f.records) {
		f.issue("problem count disagrees with parsed findings")
	}
	if len(f.records) > 0 && wantProblems < 0 {
		f.issue("no summary line found")
	}
	return assemble(f, "lint check", contextHint, rerunESLint(f.records))
}

func rerunESLint(records []FormattedError) string {
	if len(records) != 1 || records[0].File == "" {
		return "npx eslint ."
	}
	return "npx eslint " + records[0].File
}

func (e *ESLintExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "mixed-severities",
			Description: "error and warning findings under one file heading",
			Input: "src/registry.js\n" +
				"  48:13  error    'fallback' is assigned a value but never used  no-unused-vars\n" +
				"  61:1   warning  Unexpected console statement                   no-console\n" +
				"\n" +
				"✖ 2 problems (1 error, 1 warning)\n",
			WantErrors:   2,
			WantPatterns: []string{"src/registry.js", "no-unused-vars"},
		},
		{
			Name:        "clean-lint",
			Description: "no findings means nothing to extract",
			Input:       "\n✖ 0 problems (0 errors, 0 warnings)\n",
			WantErrors:  0,
		},
	}
}
