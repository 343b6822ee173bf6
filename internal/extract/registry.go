package extract

import (
	"strings"

	"github.com/lucasnoah/sift/internal/cleanlog"
)

// Registry routes unknown output to the best-matching extractor. Plugins
// are registered once at construction and never mutated afterward; every
// Detect/Extract call is independent, so a single Registry is safe to use
// from any number of goroutines.
type Registry struct {
	plugins  []Plugin // descending priority
	fallback Plugin
}

// NewRegistry builds a registry with all built-in extractors. Priority
// order encodes format specificity: distinctive, low-collision formats
// (XML report headers, compiler diagnostic codes) outrank generic wording
// matches that many tools share.
func NewRegistry() *Registry {
	r := &Registry{fallback: &GenericExtractor{}}
	for _, p := range []Plugin{
		&JUnitExtractor{},
		&TAPExtractor{},
		&TSCExtractor{},
		&GoTestExtractor{},
		&PytestExtractor{},
		&PlaywrightExtractor{},
		&VitestExtractor{},
		&JestExtractor{},
		&ESLintExtractor{},
		&MochaExtractor{},
	} {
		r.Register(p)
	}
	return r
}

// Register inserts a plugin keeping descending priority order. Equal
// priorities keep registration order, so dispatch stays deterministic.
func (r *Registry) Register(p Plugin) {
	pri := p.Meta().Priority
	for i, existing := range r.plugins {
		if existing.Meta().Priority < pri {
			r.plugins = append(r.plugins[:i], append([]Plugin{p}, r.plugins[i:]...)...)
			return
		}
	}
	r.plugins = append(r.plugins, p)
}

// Plugins returns all registered plugins in evaluation order, plus the
// fallback last.
func (r *Registry) Plugins() []Plugin {
	out := make([]Plugin, 0, len(r.plugins)+1)
	out = append(out, r.plugins...)
	return append(out, r.fallback)
}

// Lookup returns a plugin by name, or nil. Used when the caller already
// knows the format (e.g. a configured step) and wants to bypass routing.
func (r *Registry) Lookup(name string) Plugin {
	for _, p := range r.Plugins() {
		if p.Meta().Name == name {
			return p
		}
	}
	return nil
}

// Detect picks the extractor for the given (already cleaned) output: a
// first-qualifying-match cascade in descending priority order. The first
// plugin passing its hint pre-filter whose Detect meets its own declared
// threshold wins; remaining candidates are not tried. When nothing
// qualifies the generic fallback is returned, which always succeeds.
func (r *Registry) Detect(output string) (Plugin, DetectionResult) {
	for _, p := range r.plugins {
		m := p.Meta()
		if !hintsPass(m.Hints, output) {
			continue
		}
		d := p.Detect(output)
		if d.Confidence > 0 && d.Confidence >= m.Threshold {
			return p, d
		}
	}
	return r.fallback, r.fallback.Detect(output)
}

// Run is the single entry point: strip terminal escapes and CI prefixes
// centrally (extractors never see them), route, extract, and stamp
// detection metadata unless the chosen extractor already populated it.
// contextHint never influences routing, only generated guidance text.
func (r *Registry) Run(contextHint, rawOutput string) Result {
	output := cleanlog.Clean(rawOutput)
	p, d := r.Detect(output)
	res := p.Extract(output, contextHint)
	if res.Metadata.Detection == nil {
		res.Metadata.Detection = &Detection{
			Extractor:  p.Meta().Name,
			Confidence: d.Confidence,
			Patterns:   d.Patterns,
			Reason:     d.Reason,
		}
	}
	return res
}

// hintsPass applies the cheap substring pre-filter: all Required present,
// at least one AnyOf present, no Forbidden present.
func hintsPass(h Hints, output string) bool {
	for _, s := range h.Required {
		if !strings.Contains(output, s) {
			return false
		}
	}
	if len(h.AnyOf) > 0 {
		found := false
		for _, s := range h.AnyOf {
			if strings.Contains(output, s) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, s := range h.Forbidden {
		if strings.Contains(output, s) {
			return false
		}
	}
	return true
}
