package extract

import (
	"regexp"
	"strings"
)

// MochaExtractor parses mocha's spec reporter: "N passing"/"N failing"
// counts followed by numbered failure blocks. The passing/failing wording
// is shared by several tools, so this extractor sits at the bottom of the
// priority order and demands the numbered blocks for a confident match.
type MochaExtractor struct{}

func (m *MochaExtractor) Meta() Meta {
	return Meta{
		Name:        "mocha",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "mocha spec reporter output",
		Tags:        []string{"test", "javascript"},
		Priority:    55,
		Threshold:   80,
		Hints: Hints{
			AnyOf:     []string{"failing", "passing"},
			Forbidden: []string{"● ", "⎯"},
		},
	}
}

var (
	mochaFailingRe = regexp.MustCompile(`(\d+) failing`)
	mochaPassingRe = regexp.MustCompile(`(\d+) passing`)
	mochaOpenerRe  = regexp.MustCompile(`^\s*(\d+)\) (.+?):?$`)
	mochaFrameRe   = regexp.MustCompile(`^\s+at .*\(?([\w./\\-]+\.[jt]sx?):(\d+):(\d+)\)?`)
	mochaErrorRe   = regexp.MustCompile(`^\s*([A-Z][A-Za-z]*(?:Error|Exception)\b.*|Error\b.*)`)
)

func (m *MochaExtractor) Detect(output string) DetectionResult {
	failing := mochaFailingRe.FindStringSubmatch(output)
	passing := mochaPassingRe.MatchString(output)
	numbered := mochaOpenerRe.MatchString(firstMatchingLine(output, mochaOpenerRe))

	switch {
	case failing != nil && numbered:
		return DetectionResult{
			Confidence: ConfidenceSingle,
			Patterns:   []string{"N failing", "numbered failure blocks"},
			Reason:     "mocha failing count with numbered failure records",
		}
	case failing != nil && passing:
		return DetectionResult{
			Confidence: ConfidenceGeneric,
			Patterns:   []string{"N passing/N failing"},
			Reason:     "passing/failing counts (wording shared by many tools)",
		}
	}
	return noMatch()
}

func (m *MochaExtractor) Extract(output, contextHint string) Result {
	f := &findings{}
	lines := strings.Split(output, "\n")

	wantFailed := -1
	if s := mochaFailingRe.FindStringSubmatch(output); s != nil {
		wantFailed = countOf(s[1])
	}

	var blockTitle []string
	var blockBody []string
	inBlock := false

	flush := func() {
		if !inBlock {
			return
		}
		rec := m.buildRecord(blockTitle, blockBody)
		if isTimeout(rec.Message) {
			f.timedOut = true
		}
		f.add(rec)
		blockTitle, blockBody, inBlock = nil, nil, false
	}

	// The spec reporter lists failing tests twice: inline under each suite,
	// then as detailed blocks after the passing/failing counts. Only the
	// detailed blocks are parsed.
	seenCounts := false
	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)
		if mochaFailingRe.MatchString(trimmedLine) || mochaPassingRe.MatchString(trimmedLine) {
			seenCounts = true
			continue
		}
		if om := mochaOpenerRe.FindStringSubmatch(line); om != nil && seenCounts && !strings.Contains(line, " at ") {
			flush()
			inBlock = true
			blockTitle = []string{strings.TrimSpace(om[2])}
			continue
		}
		if !inBlock {
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case len(blockBody) == 0 && mochaErrorRe.MatchString(trimmed):
			blockBody = append(blockBody, line)
		case len(blockBody) > 0:
			blockBody = append(blockBody, line)
		case trimmed != "":
			// Still in the title: nested suite/test names span lines.
			blockTitle = append(blockTitle, strings.TrimSuffix(trimmed, ":"))
		}
	}
	flush()

	if wantFailed >= 0 && wantFailed != len(f.records) {
		f.issue("failing count disagrees with parsed failure blocks")
	}
	return assemble(f, "test", contextHint, rerunMocha(f.records))
}

func (m *MochaExtractor) buildRecord(title, body []string) FormattedError {
	rec := FormattedError{Context: strings.Join(title, " "), Severity: "error"}

	var msg []string
	var frames []string
	for _, line := range body {
		if mochaFrameRe.MatchString(line) || strings.HasPrefix(strings.TrimSpace(line), "at ") {
			frames = append(frames, line)
			continue
		}
		msg = append(msg, line)
	}
	rec.Message = joinMessage(msg)
	if rec.Message == "" {
		rec.Message = "test " + rec.Context + " failed"
	}
	if file, ln, col, ok := frameLocation(frames); ok {
		rec.File, rec.Line, rec.Column = file, ln, col
	}
	return rec
}

func rerunMocha(records []FormattedError) string {
	if len(records) != 1 || records[0].File == "" {
		return "npx mocha"
	}
	return "npx mocha " + records[0].File
}

func (m *MochaExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "assertion-failure",
			Description: "one failing test with nested title and stack",
			Input: "  router\n" +
				"    ✓ picks the junit extractor\n" +
				"    1) falls back when nothing qualifies\n" +
				"\n" +
				"  7 passing (120ms)\n" +
				"  1 failing\n" +
				"\n" +
				"  1) router\n" +
				"       falls back when nothing qualifies:\n" +
				"\n" +
				"      AssertionError: expected 'generic' to equal 'tap'\n" +
				"      + expected - actual\n" +
				"\n" +
				"      at Context.<anonymous> (test/router.spec.js:31:18)\n" +
				"      at processImmediate (node:internal/timers:476:21)\n",
			WantErrors:   1,
			WantPatterns: []string{"test/router.spec.js", "AssertionError"},
		},
		{
			Name:        "all-passing",
			Description: "passing run must produce nothing",
			Input:       "  router\n    ✓ routes junit\n\n  8 passing (95ms)\n",
			WantErrors:  0,
		},
	}
}
