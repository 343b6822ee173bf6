package extract

import (
	"encoding/xml"
	"regexp"
	"strings"
)

// JUnitExtractor parses JUnit/xUnit XML reports. The report header is the
// single most unambiguous marker in the suite, so this extractor has the
// highest priority. Malformed XML degrades to a regex scan over failure
// elements instead of failing.
type JUnitExtractor struct{}

func (j *JUnitExtractor) Meta() Meta {
	return Meta{
		Name:        "junit",
		Version:     "1.0.0",
		Author:      "sift",
		Description: "JUnit/xUnit XML test reports",
		Tags:        []string{"test", "xml", "report"},
		Priority:    100,
		Threshold:   90,
		Hints: Hints{
			Required: []string{"<testsuite"},
			AnyOf:    []string{"<failure", "<error"},
		},
	}
}

type junitSuites struct {
	XMLName xml.Name     `xml:"testsuites"`
	Suites  []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name  string      `xml:"name,attr"`
	Cases []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	File      string        `xml:"file,attr"`
	Line      int           `xml:"line,attr"`
	Failure   *junitProblem `xml:"failure"`
	Error     *junitProblem `xml:"error"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

func (j *JUnitExtractor) Detect(output string) DetectionResult {
	hasSuite := strings.Contains(output, "<testsuite")
	hasProblem := strings.Contains(output, "<failure") || strings.Contains(output, "<error")
	if !hasSuite || !hasProblem {
		return noMatch()
	}
	if strings.Contains(output, "<?xml") {
		return DetectionResult{
			Confidence: ConfidenceStructural,
			Patterns:   []string{"<?xml", "<testsuite", "<failure/<error"},
			Reason:     "machine-readable JUnit report header",
		}
	}
	return DetectionResult{
		Confidence: ConfidenceDistinctive,
		Patterns:   []string{"<testsuite", "<failure/<error"},
		Reason:     "JUnit testsuite element with failure records",
	}
}

func (j *JUnitExtractor) Extract(output, contextHint string) Result {
	f := &findings{}

	suites, err := decodeJUnit(output)
	if err != nil {
		j.scanDamaged(f, output)
		f.issue("malformed XML report; regex fallback used")
		return assemble(f, "test", contextHint, "")
	}

	for _, suite := range suites {
		for _, tc := range suite.Cases {
			prob := tc.Failure
			if prob == nil {
				prob = tc.Error
			}
			if prob == nil {
				continue
			}
			rec := FormattedError{
				File:     tc.File,
				Line:     tc.Line,
				Context:  junitContext(suite.Name, tc.ClassName, tc.Name),
				Severity: "error",
			}
			rec.Message = strings.TrimSpace(prob.Message)
			if rec.Message == "" {
				rec.Message = joinMessage(strings.Split(prob.Body, "\n"))
			}
			if prob.Type != "" && !strings.Contains(rec.Message, prob.Type) {
				rec.Message = prob.Type + ": " + rec.Message
			}
			if rec.Message == "" {
				rec.Message = "test " + tc.Name + " failed"
			}
			// Location embedded in the failure body beats missing attrs.
			if rec.File == "" {
				if file, ln, col, ok := frameLocation(strings.Split(prob.Body, "\n")); ok {
					rec.File, rec.Line, rec.Column = file, ln, col
				}
			}
			if isTimeout(rec.Message) {
				f.timedOut = true
			}
			f.add(rec)
		}
	}

	return assemble(f, "test", contextHint, "")
}

// decodeJUnit accepts both a <testsuites> wrapper and a bare <testsuite>
// root element.
func decodeJUnit(output string) ([]junitSuite, error) {
	var wrapped junitSuites
	if err := xml.Unmarshal([]byte(output), &wrapped); err == nil {
		return wrapped.Suites, nil
	}
	var single junitSuite
	if err := xml.Unmarshal([]byte(output), &single); err != nil {
		return nil, err
	}
	return []junitSuite{single}, nil
}

func junitContext(suite, class, name string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{suite, class, name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " > ")
}

var junitDamagedRe = regexp.MustCompile(`<(?:failure|error)[^>]*message="([^"]*)"`)

// scanDamaged recovers what it can from a truncated or garbled report.
func (j *JUnitExtractor) scanDamaged(f *findings, output string) {
	for _, m := range junitDamagedRe.FindAllStringSubmatch(output, -1) {
		msg := strings.TrimSpace(m[1])
		if msg == "" {
			msg = "test failed (no message attribute)"
		}
		f.add(FormattedError{Message: msg, Severity: "error"})
	}
}

func (j *JUnitExtractor) Samples() []Sample {
	return []Sample{
		{
			Name:        "wrapped-report",
			Description: "testsuites wrapper with one failure and one error",
			Input: `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="extract" tests="3" failures="1" errors="1">
    <testcase name="caps list" classname="DigestTest" file="digest_test.py" line="27">
      <failure message="expected 10 entries, got 11" type="AssertionError">digest_test.py:27: AssertionError</failure>
    </testcase>
    <testcase name="routes xml" classname="RouterTest">
      <error message="division by zero" type="ZeroDivisionError">router.py:88: ZeroDivisionError</error>
    </testcase>
    <testcase name="passes" classname="RouterTest"/>
  </testsuite>
</testsuites>
`,
			WantErrors:   2,
			WantPatterns: []string{"digest_test.py", "division by zero"},
		},
		{
			Name:        "truncated-report",
			Description: "garbled XML degrades to the regex fallback",
			Input: `<testsuite name="extract" tests="2" failures="1">
  <testcase name="caps list"><failure message="expected 10, got 11">trace trunca`,
			WantErrors:   1,
			WantPatterns: []string{"expected 10, got 11"},
		},
		{
			Name:        "all-passing",
			Description: "passing report must produce nothing",
			Input: `<?xml version="1.0"?>
<testsuites><testsuite name="extract" tests="2" failures="0"><testcase name="a"/><testcase name="b"/></testsuite></testsuites>
`,
			WantErrors:  0,
		},
	}
}
