// Package quality scores extractors against their ground-truth samples.
// It is an offline harness: it defines the acceptance bar for parser
// changes and is never consulted at runtime.
package quality

import (
	"fmt"
	"strings"

	"github.com/lucasnoah/sift/internal/extract"
)

// PassBar is the minimum score an extractor must reach for `sift quality`
// to exit zero.
const PassBar = 80

// Report holds the score for one extractor.
type Report struct {
	Extractor string   `json:"extractor"`
	Checks    int      `json:"checks"`
	Passed    int      `json:"passed"`
	Score     int      `json:"score"`
	Failures  []string `json:"failures,omitempty"`
}

// ScorePlugin evaluates one plugin against its own samples. Each sample
// contributes a detection check (failing samples must meet the plugin's
// threshold, passing samples must detect as 0), an error-count check, a
// pattern check per expected substring, and the structural invariants the
// engine guarantees for every result.
func ScorePlugin(p extract.Plugin) Report {
	meta := p.Meta()
	rep := Report{Extractor: meta.Name}

	for _, s := range p.Samples() {
		d := p.Detect(s.Input)

		if s.WantErrors > 0 {
			check(&rep, d.Confidence >= meta.Threshold,
				fmt.Sprintf("%s: detection confidence %d below threshold %d", s.Name, d.Confidence, meta.Threshold))
		} else if meta.Name != "generic" {
			check(&rep, d.Confidence == 0,
				fmt.Sprintf("%s: passing sample detected with confidence %d, want 0", s.Name, d.Confidence))
		}

		res := p.Extract(s.Input, "")
		check(&rep, res.TotalErrors == s.WantErrors,
			fmt.Sprintf("%s: got %d errors, want %d", s.Name, res.TotalErrors, s.WantErrors))
		check(&rep, invariantsHold(res),
			fmt.Sprintf("%s: result violates structural invariants", s.Name))

		for _, pat := range s.WantPatterns {
			check(&rep, containsPattern(res, pat),
				fmt.Sprintf("%s: pattern %q not found in extracted errors", s.Name, pat))
		}
	}

	if rep.Checks > 0 {
		rep.Score = rep.Passed * 100 / rep.Checks
	} else {
		rep.Score = 100
	}
	return rep
}

// ScoreAll scores every registered plugin and additionally verifies the
// router picks the owning plugin for each failing sample. Formats that
// legitimately overlap would surface here first.
func ScoreAll(r *extract.Registry) []Report {
	reports := make([]Report, 0)
	for _, p := range r.Plugins() {
		rep := ScorePlugin(p)

		if p.Meta().Name != "generic" {
			for _, s := range p.Samples() {
				if s.WantErrors == 0 {
					continue
				}
				chosen, _ := r.Detect(s.Input)
				check(&rep, chosen.Meta().Name == p.Meta().Name,
					fmt.Sprintf("%s: router chose %q for this sample", s.Name, chosen.Meta().Name))
			}
			if rep.Checks > 0 {
				rep.Score = rep.Passed * 100 / rep.Checks
			}
		}
		reports = append(reports, rep)
	}
	return reports
}

// AllPass reports whether every extractor meets the acceptance bar.
func AllPass(reports []Report) bool {
	for _, rep := range reports {
		if rep.Score < PassBar {
			return false
		}
	}
	return true
}

func check(rep *Report, ok bool, failure string) {
	rep.Checks++
	if ok {
		rep.Passed++
		return
	}
	rep.Failures = append(rep.Failures, failure)
}

func invariantsHold(res extract.Result) bool {
	if len(res.Errors) > extract.MaxErrors {
		return false
	}
	if len(res.Errors) > res.TotalErrors {
		return false
	}
	if (res.TotalErrors == 0) != (len(res.Errors) == 0) {
		return false
	}
	for _, e := range res.Errors {
		if e.Message == "" {
			return false
		}
	}
	return true
}

func containsPattern(res extract.Result, pat string) bool {
	for _, e := range res.Errors {
		if strings.Contains(e.Message, pat) ||
			strings.Contains(e.File, pat) ||
			strings.Contains(e.Context, pat) {
			return true
		}
	}
	return false
}
