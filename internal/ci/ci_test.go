package ci

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/lucasnoah/sift/internal/extract"
)

type fakeGh struct {
	outs  []string
	errs  []error
	calls int
}

func (f *fakeGh) Run(args ...string) (string, error) {
	i := f.calls
	f.calls++
	if i >= len(f.outs) {
		return "", errors.New("unexpected call")
	}
	return f.outs[i], f.errs[i]
}

func newTestGitHub(cmd CmdRunner) *GitHub {
	return &GitHub{
		cmd:     cmd,
		logs:    gocache.New(time.Minute, time.Minute),
		retries: 3,
		backoff: time.Millisecond,
	}
}

func TestCheckFailed(t *testing.T) {
	tests := []struct {
		check Check
		want  bool
	}{
		{Check{Status: "completed", Conclusion: "failure"}, true},
		{Check{Status: "completed", Conclusion: "cancelled"}, true},
		{Check{Status: "completed", Conclusion: "success"}, false},
		{Check{Status: "completed", Conclusion: "skipped"}, false},
		{Check{Status: "completed", Conclusion: "neutral"}, false},
		{Check{Status: "in_progress", Conclusion: ""}, false},
	}
	for _, tt := range tests {
		if got := tt.check.Failed(); got != tt.want {
			t.Errorf("Failed(%s/%s) = %v, want %v", tt.check.Status, tt.check.Conclusion, got, tt.want)
		}
	}
}

func TestChecksParsesRunList(t *testing.T) {
	gh := newTestGitHub(&fakeGh{
		outs: []string{`[
  {"databaseId": 101, "name": "tests", "status": "completed", "conclusion": "failure"},
  {"databaseId": 102, "name": "lint", "status": "completed", "conclusion": "success"}
]`},
		errs: []error{nil},
	})

	checks, err := gh.Checks(context.Background(), "main")
	if err != nil {
		t.Fatal(err)
	}
	if len(checks) != 2 {
		t.Fatalf("got %d checks", len(checks))
	}
	if checks[0].RunID != 101 || checks[0].Name != "tests" || !checks[0].Failed() {
		t.Errorf("first check = %+v", checks[0])
	}
}

func TestLogMemoizesFetches(t *testing.T) {
	fake := &fakeGh{
		outs: []string{"job\tstep\t2026-08-20T10:00:00.0000000Z FAIL"},
		errs: []error{nil},
	}
	gh := newTestGitHub(fake)

	for i := 0; i < 3; i++ {
		log, err := gh.Log(context.Background(), 101)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(log, "FAIL") {
			t.Errorf("log = %q", log)
		}
	}
	if fake.calls != 1 {
		t.Errorf("gh invoked %d times, want 1 (log not memoized)", fake.calls)
	}
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	fake := &fakeGh{
		outs: []string{"", "", "log content"},
		errs: []error{
			errors.New("gh: HTTP 503 service unavailable"),
			errors.New("gh: request timed out"),
			nil,
		},
	}
	gh := newTestGitHub(fake)

	log, err := gh.Log(context.Background(), 55)
	if err != nil {
		t.Fatal(err)
	}
	if log != "log content" {
		t.Errorf("log = %q", log)
	}
	if fake.calls != 3 {
		t.Errorf("gh invoked %d times, want 3", fake.calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	fake := &fakeGh{
		outs: []string{""},
		errs: []error{errors.New("gh: HTTP 404 could not resolve run")},
	}
	gh := newTestGitHub(fake)

	if _, err := gh.Log(context.Background(), 55); err == nil {
		t.Fatal("expected an error")
	}
	if fake.calls != 1 {
		t.Errorf("gh invoked %d times, want 1 (permanent errors must not retry)", fake.calls)
	}
}

func TestRetryGivesUpAfterBudget(t *testing.T) {
	transient := errors.New("gh: rate limit exceeded")
	fake := &fakeGh{
		outs: []string{"", "", ""},
		errs: []error{transient, transient, transient},
	}
	gh := newTestGitHub(fake)

	_, err := gh.Log(context.Background(), 55)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "giving up after 3 attempts") {
		t.Errorf("err = %v", err)
	}
	if fake.calls != 3 {
		t.Errorf("gh invoked %d times, want 3", fake.calls)
	}
}

type fakeProvider struct {
	checks []Check
	logs   map[int64]string
	errs   map[int64]error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Checks(ctx context.Context, ref string) ([]Check, error) {
	return f.checks, nil
}

func (f *fakeProvider) Log(ctx context.Context, runID int64) (string, error) {
	if err := f.errs[runID]; err != nil {
		return "", err
	}
	return f.logs[runID], nil
}

func TestWatchExtractsFailingChecksInOrder(t *testing.T) {
	p := &fakeProvider{
		checks: []Check{
			{Name: "tests", Status: "completed", Conclusion: "failure", RunID: 1},
			{Name: "lint", Status: "completed", Conclusion: "success", RunID: 2},
			{Name: "e2e", Status: "completed", Conclusion: "failure", RunID: 3},
		},
		logs: map[int64]string{
			1: "--- FAIL: TestStore (0.01s)\n    store_test.go:44: got 2, want 3\nFAIL\tgithub.com/acme/app\t0.1s\n",
		},
		errs: map[int64]error{
			3: errors.New("log expired"),
		},
	}

	reports, err := Watch(context.Background(), p, extract.NewRegistry(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2 (successes must be skipped)", len(reports))
	}
	if reports[0].Check.Name != "tests" || reports[1].Check.Name != "e2e" {
		t.Errorf("report order: %s, %s", reports[0].Check.Name, reports[1].Check.Name)
	}
	if reports[0].Extraction.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", reports[0].Extraction.TotalErrors)
	}
	if reports[1].FetchErr == "" {
		t.Error("log fetch failure not reported")
	}
}

func TestWatchNoFailingChecks(t *testing.T) {
	p := &fakeProvider{
		checks: []Check{{Name: "tests", Status: "completed", Conclusion: "success", RunID: 1}},
	}
	reports, err := Watch(context.Background(), p, extract.NewRegistry(), "")
	if err != nil {
		t.Fatal(err)
	}
	if reports != nil {
		t.Errorf("reports = %+v, want none", reports)
	}
}
