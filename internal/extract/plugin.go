package extract

// MaxErrors caps how many structured errors a result carries. TotalErrors
// always holds the true count found, even when the list is truncated.
const MaxErrors = 10

// maxMessageLines bounds how many continuation lines a single record's
// message may absorb before it is cut with a truncation marker.
const maxMessageLines = 5

// Detection confidence rubric. Detect implementations must return one of
// these levels (or 0 for "not this format") so scores stay comparable
// across extractors.
const (
	ConfidenceStructural  = 100 // unambiguous machine-readable marker (e.g. XML report header)
	ConfidenceDistinctive = 95  // very distinctive tool-specific token combination
	ConfidenceStrongMulti = 90  // multiple strong signals together
	ConfidenceSingle      = 85  // a single strong signal
	ConfidenceGeneric     = 80  // generic wording many tools share
	ConfidenceFallback    = 50  // no specific match; the fallback extractor
)

// DetectionResult is the outcome of asking one extractor whether a blob of
// output looks like its format. Confidence 0 means "not this format".
type DetectionResult struct {
	Confidence int      `json:"confidence"`
	Patterns   []string `json:"patterns"`
	Reason     string   `json:"reason"`
}

// FormattedError is one structured failure record. Message is always set;
// location fields are best-effort.
type FormattedError struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Message  string `json:"message"`
	Context  string `json:"context,omitempty"`
	Guidance string `json:"guidance,omitempty"`
	Severity string `json:"severity,omitempty"` // "error" or "warning"
}

// Detection records which extractor produced a result and why it was chosen.
type Detection struct {
	Extractor  string   `json:"extractor"`
	Confidence int      `json:"confidence"`
	Patterns   []string `json:"patterns,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// Metadata carries extraction quality scores, distinct from detection
// confidence: these describe how much of the available signal the extractor
// managed to structure.
type Metadata struct {
	Confidence   int        `json:"confidence"`
	Completeness int        `json:"completeness"`
	Issues       []string   `json:"issues,omitempty"`
	Detection    *Detection `json:"detection,omitempty"`
}

// Result is the structured output of one extraction.
type Result struct {
	Errors       []FormattedError `json:"errors"`
	TotalErrors  int              `json:"total_errors"`
	Summary      string           `json:"summary"`
	Guidance     string           `json:"guidance,omitempty"`
	ErrorSummary string           `json:"error_summary,omitempty"`
	Metadata     Metadata         `json:"metadata"`
}

// Hints are cheap substring pre-filters evaluated before Detect. A plugin
// failing its hints is skipped without paying for pattern matching.
type Hints struct {
	Required  []string // all must appear
	AnyOf     []string // at least one must appear
	Forbidden []string // none may appear
}

// Meta is the static, process-lifetime descriptor of a plugin.
type Meta struct {
	Name        string
	Version     string
	Author      string
	Description string
	Tags        []string
	Priority    int   // higher is evaluated earlier
	Threshold   int   // minimum detection confidence to accept this plugin
	Hints       Hints
}

// Sample is a ground-truth fixture consumed only by the offline quality
// harness, never at runtime.
type Sample struct {
	Name         string
	Description  string
	Input        string
	WantErrors   int
	WantPatterns []string // substrings expected somewhere in the extracted errors
}

// Plugin is the contract every extractor implements. Both Detect and
// Extract must be total over all string inputs, side-effect free, and
// independent of each other: callers may invoke Extract directly once a
// format is known. No filesystem, process, network, or dynamic-code access
// is permitted, so out-of-tree plugins can run under a restricted sandbox.
type Plugin interface {
	Meta() Meta
	Detect(output string) DetectionResult
	Extract(output, contextHint string) Result
	Samples() []Sample
}

// noMatch is the canonical "not this format" detection.
func noMatch() DetectionResult {
	return DetectionResult{Confidence: 0, Patterns: []string{}, Reason: "no format markers found"}
}
