package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CoverageFile is the sentinel file name assigned to aggregate records
// (e.g. a global coverage-threshold violation) that have no real location.
const CoverageFile = "coverage"

// record collection rolls up what a per-tool scan found before assembly.
type findings struct {
	records  []FormattedError
	issues   []string
	timedOut bool
}

func (f *findings) add(e FormattedError) {
	f.records = append(f.records, e)
}

func (f *findings) issue(msg string) {
	for _, existing := range f.issues {
		if existing == msg {
			return
		}
	}
	f.issues = append(f.issues, msg)
}

// assemble builds the final Result from everything a scan discovered:
// caps the error list at MaxErrors, preserves the true count, renders the
// numbered digest, and picks the guidance variant. Discovery order is
// preserved exactly as the scan appended records.
func assemble(f *findings, unit, contextHint, rerun string) Result {
	total := len(f.records)

	errs := f.records
	if len(errs) > MaxErrors {
		errs = errs[:MaxErrors]
	}
	if errs == nil {
		errs = []FormattedError{}
	}

	res := Result{
		Errors:      errs,
		TotalErrors: total,
		Summary:     fmt.Sprintf("%d %s(s) failed", total, unit),
		Metadata:    scoreExtraction(errs, f.issues),
	}
	if total == 0 {
		return res
	}

	res.ErrorSummary = renderDigest(errs, total)
	res.Guidance = renderGuidance(errs, total, f.timedOut, unit, contextHint, rerun)
	return res
}

// renderDigest formats the capped "[Test i/N] location - message" listing.
func renderDigest(errs []FormattedError, total int) string {
	var b strings.Builder
	for i, e := range errs {
		fmt.Fprintf(&b, "[Test %d/%d] ", i+1, total)
		if loc := formatLocation(e); loc != "" {
			b.WriteString(loc)
			b.WriteString(" - ")
		}
		b.WriteString(firstLine(e.Message))
		if i < len(errs)-1 {
			b.WriteByte('\n')
		}
	}
	if total > len(errs) {
		fmt.Fprintf(&b, "\n...and %d more (run locally for the full list)", total-len(errs))
	}
	return b.String()
}

func renderGuidance(errs []FormattedError, total int, timedOut bool, unit, contextHint, rerun string) string {
	step := ""
	if contextHint != "" {
		step = fmt.Sprintf(" in the %q step", contextHint)
	}

	if timedOut {
		return fmt.Sprintf("At least one %s%s hit an execution timeout rather than an assertion failure. "+
			"Look for hangs, missing awaits, or deadlocks before treating the message as a real failure.", unit, step)
	}
	if total == 1 {
		loc := formatLocation(errs[0])
		if loc == "" {
			loc = "the reported location"
		}
		g := fmt.Sprintf("Fix the single failing %s%s at %s", unit, step, loc)
		if rerun != "" {
			g += fmt.Sprintf(", then verify with `%s`", rerun)
		}
		return g + "."
	}
	return fmt.Sprintf("%d %ss failed%s. Fix each individually, starting with the first; "+
		"later failures are often knock-on effects of the first.", total, unit, step)
}

func formatLocation(e FormattedError) string {
	if e.File == "" {
		return ""
	}
	loc := e.File
	if e.Line > 0 {
		loc += ":" + strconv.Itoa(e.Line)
		if e.Column > 0 {
			loc += ":" + strconv.Itoa(e.Column)
		}
	}
	return loc
}

// scoreExtraction derives the quality metadata: confidence reflects how
// cleanly the scan went (caveats reduce it), completeness how many records
// carry a usable location.
func scoreExtraction(errs []FormattedError, issues []string) Metadata {
	meta := Metadata{Confidence: 90, Completeness: 100, Issues: issues}
	if len(issues) > 0 {
		meta.Confidence = 90 - 10*len(issues)
		if meta.Confidence < 30 {
			meta.Confidence = 30
		}
	}
	if len(errs) > 0 {
		located := 0
		for _, e := range errs {
			if e.File != "" {
				located++
			}
		}
		meta.Completeness = located * 100 / len(errs)
	}
	return meta
}

// locationRe matches "path/file.ext:line" with an optional ":col" suffix.
var locationRe = regexp.MustCompile(`([A-Za-z0-9_@][A-Za-z0-9_.@/\\-]*\.[A-Za-z][A-Za-z0-9]*):(\d+)(?::(\d+))?`)

// parseLocation pulls the first file:line[:col] marker out of a string.
func parseLocation(s string) (file string, line, col int, ok bool) {
	m := locationRe.FindStringSubmatch(s)
	if m == nil {
		return "", 0, 0, false
	}
	line, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		col, _ = strconv.Atoi(m[3])
	}
	return m[1], line, col, true
}

// internalFrameMarkers identify stack frames inside tool or runtime code.
// User-code frames are preferred when resolving a record's location.
var internalFrameMarkers = []string{
	"node_modules/",
	"node:internal",
	"internal/process",
	"/usr/lib/",
	"site-packages/",
	"runtime/",
	"testing/testing.go",
}

func isInternalFrame(s string) bool {
	for _, marker := range internalFrameMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// frameLocation scans stack-trace lines for the best location: the first
// user-code frame, falling back to the first frame of any kind.
func frameLocation(lines []string) (file string, line, col int, ok bool) {
	var fbFile string
	var fbLine, fbCol int
	var fbOK bool
	for _, l := range lines {
		f, ln, c, found := parseLocation(l)
		if !found {
			continue
		}
		if !fbOK {
			fbFile, fbLine, fbCol, fbOK = f, ln, c, true
		}
		if !isInternalFrame(l) {
			return f, ln, c, true
		}
	}
	return fbFile, fbLine, fbCol, fbOK
}

// joinMessage collapses continuation lines into one bounded message. The
// budget guards against pathological output; a truncation marker is added
// when it is hit.
func joinMessage(lines []string) string {
	var kept []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		kept = append(kept, l)
		if len(kept) == maxMessageLines {
			kept = append(kept, "...(truncated)")
			break
		}
	}
	return strings.Join(kept, "\n")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// firstMatchingLine returns the first line the pattern matches, so callers
// can apply a line-anchored regexp to multi-line output.
func firstMatchingLine(output string, re *regexp.Regexp) string {
	for _, line := range strings.Split(output, "\n") {
		if re.MatchString(line) {
			return line
		}
	}
	return ""
}

// errorTypeRe matches a leading exception-class label like "AssertionError:".
var errorTypeRe = regexp.MustCompile(`^([A-Z][A-Za-z0-9]*(?:Error|Exception|Failure))\b`)

// errorType derives the error class from message text when the tool does
// not label it explicitly. Empty when no class is recognizable.
func errorType(message string) string {
	m := errorTypeRe.FindStringSubmatch(strings.TrimSpace(message))
	if m == nil {
		return ""
	}
	return m[1]
}

// timeout wording shared by several runners (pytest-timeout, jest, playwright).
var timeoutRe = regexp.MustCompile(`(?i)\b(timed? ?out|timeout of [\d.]+\s*m?s|exceeded timeout)\b`)

func isTimeout(message string) bool {
	return timeoutRe.MatchString(message)
}

func countOf(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
