// Package cleanlog normalizes captured command output before any detection
// or extraction logic sees it: ANSI escapes, CI log timestamp prefixes, and
// job/step prefixes are stripped centrally so individual extractors never
// have to handle them.
package cleanlog

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var (
	// GitHub Actions style timestamp prefix: 2026-01-26T14:49:40.7760945Z
	timestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z\s?`)

	// Job/step prefix as emitted by `gh run view --log`:
	// "JobName\tStepName\t2026-01-26T14:49:40.7760945Z content"
	jobPrefixRe = regexp.MustCompile(`^[^\t]+\t[^\t]+\t`)
)

// StripTimestamps removes CI timestamp prefixes from each line.
func StripTimestamps(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = timestampRe.ReplaceAllString(line, "")
	}
	return strings.Join(lines, "\n")
}

// StripJobPrefix removes the "job\tstep\t" prefix gh prepends to fetched
// workflow logs. Only lines that also carry a timestamp after the prefix
// are touched, to avoid eating tab-indented tool output.
func StripJobPrefix(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if m := jobPrefixRe.FindString(line); m != "" {
			rest := line[len(m):]
			if timestampRe.MatchString(rest) {
				lines[i] = rest
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Clean applies the full preprocessing pipeline: CRLF normalization, job
// prefixes, timestamps, then ANSI escape sequences.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = StripJobPrefix(s)
	s = StripTimestamps(s)
	return ansi.Strip(s)
}
