// Package ci fetches check results and logs from CI providers and feeds
// failing logs through the extraction engine.
package ci

import (
	"context"
	"fmt"
	"sync"

	"github.com/lucasnoah/sift/internal/extract"
)

// Check is one CI check run on a ref.
type Check struct {
	Name       string `json:"name"`
	Status     string `json:"status"`     // queued, in_progress, completed
	Conclusion string `json:"conclusion"` // success, failure, cancelled, ...
	RunID      int64  `json:"run_id"`
}

// Failed reports whether the check completed unsuccessfully.
func (c Check) Failed() bool {
	return c.Status == "completed" && c.Conclusion != "success" && c.Conclusion != "skipped" && c.Conclusion != "neutral"
}

// Provider abstracts a CI system.
type Provider interface {
	Name() string
	Checks(ctx context.Context, ref string) ([]Check, error)
	Log(ctx context.Context, runID int64) (string, error)
}

// CheckReport pairs a failing check with what the engine extracted from
// its log.
type CheckReport struct {
	Check      Check          `json:"check"`
	Extraction extract.Result `json:"extraction"`
	FetchErr   string         `json:"fetch_error,omitempty"`
}

// Watch fetches the failing checks on a ref and extracts structured errors
// from each log. Logs are processed concurrently; the engine is stateless
// so the only limit is the provider's rate limit. Output order matches the
// provider's check order regardless of which log arrives first.
func Watch(ctx context.Context, p Provider, reg *extract.Registry, ref string) ([]CheckReport, error) {
	checks, err := p.Checks(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}

	var failing []Check
	for _, c := range checks {
		if c.Failed() {
			failing = append(failing, c)
		}
	}
	if len(failing) == 0 {
		return nil, nil
	}

	reports := make([]CheckReport, len(failing))
	var wg sync.WaitGroup
	for i, c := range failing {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()
			reports[i] = CheckReport{Check: c}
			log, err := p.Log(ctx, c.RunID)
			if err != nil {
				reports[i].FetchErr = err.Error()
				return
			}
			// Run strips the gh log prefixes and escapes centrally.
			reports[i].Extraction = reg.Run(c.Name, log)
		}(i, c)
	}
	wg.Wait()

	return reports, nil
}
