package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dilemma-engine/internal/handlers"
	"github.com/jwebster45206/dilemma-engine/internal/services/events"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running dilemma-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	RoleOverride      string // If set, overrides the role for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           EventTimeout,
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger(format, args...)
	}
}

// RunSuite starts a fresh run and plays every step against it
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	create := suite.Run
	if r.RoleOverride != "" {
		create.RoleKey = r.RoleOverride
	}
	gameID, err := r.createRun(ctx, create)
	if err != nil {
		result.Error = fmt.Errorf("failed to create run: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameID = gameID

	for i, step := range suite.Steps {
		r.logf("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, gameID, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.logf("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.logf("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) createRun(ctx context.Context, req handlers.CreateRunRequest) (uuid.UUID, error) {
	var created run.GameRunState
	status, body, err := r.call(ctx, http.MethodPost, "/api/runs", req, &created)
	if err != nil {
		return uuid.Nil, err
	}
	if status != http.StatusCreated {
		return uuid.Nil, fmt.Errorf("create run returned %d: %s", status, string(body))
	}
	return created.ID, nil
}

// call sends a JSON request and decodes a 2xx body into out. Non-2xx
// statuses are returned, not treated as errors.
func (r *Runner) call(ctx context.Context, method, path string, in, out any) (int, []byte, error) {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("Warning: failed to close response body: %v", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, body, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, body, nil
}

// runStep executes a single test step and checks expectations
// Will retry once on event timeouts without backoff
func (r *Runner) runStep(ctx context.Context, gameID uuid.UUID, step TestStep) TestResult {
	for attempt := 1; attempt <= 2; attempt++ {
		result := r.executeStep(ctx, gameID, step)

		if result.Success || result.Error == nil {
			return result
		}

		isTimeout := strings.Contains(result.Error.Error(), "timeout waiting for")
		if isTimeout && attempt == 1 {
			r.logf("    Timeout detected, retrying step: %s", step.Name)
			continue
		}

		return result
	}

	return TestResult{StepName: step.Name, Error: fmt.Errorf("unexpected error in retry logic")}
}

// stepOutcome is what a step produced, for checking expectations.
type stepOutcome struct {
	status   int
	body     []byte
	state    *run.GameRunState
	finalize *handlers.FinalizeResponse
	reply    *prompts.DilemmaReply
	rank     *events.Event
}

// executeStep performs the actual step execution
func (r *Runner) executeStep(ctx context.Context, gameID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	runPath := "/api/runs/" + gameID.String()
	var out stepOutcome
	var err error

	switch step.Action {
	case ActionProfile:
		if step.Profile == nil {
			return fail(fmt.Errorf("profile step needs a profile"))
		}
		out.state = &run.GameRunState{}
		out.status, out.body, err = r.call(ctx, http.MethodPost, runPath+"/profile", step.Profile, out.state)

	case ActionChoose:
		if step.Choice == nil {
			return fail(fmt.Errorf("choose step needs a choice"))
		}
		repeat := max(step.Repeat, 1)
		for i := 0; i < repeat; i++ {
			out.state = &run.GameRunState{}
			out.status, out.body, err = r.call(ctx, http.MethodPost, runPath+"/choices", step.Choice, out.state)
			if err != nil || out.status != http.StatusOK {
				break
			}
		}

	case ActionDilemma:
		out.reply = &prompts.DilemmaReply{}
		out.status, out.body, err = r.call(ctx, http.MethodPost, "/api/dilemma",
			handlers.DilemmaRequest{RunID: gameID.String()}, out.reply)
		result.ResponseText = string(out.body)

	case ActionFinalize:
		var stream *EventStream
		if step.Expectations.RankEvent {
			stream, err = OpenEventStream(ctx, r.BaseURL, gameID)
			if err != nil {
				return fail(err)
			}
			defer func() { _ = stream.Close() }()
		}
		out.finalize = &handlers.FinalizeResponse{}
		out.status, out.body, err = r.call(ctx, http.MethodPost, runPath+"/finalize",
			handlers.FinalizeRequest{SessionID: "integration-" + gameID.String()}, out.finalize)
		if err == nil && stream != nil {
			result.IsEventWait = true
			out.rank, err = stream.WaitFor(events.EventTypeRankUpdated, r.Timeout)
		}
		if out.finalize.Run != nil {
			out.state = out.finalize.Run
		}

	case ActionReplay, ActionReset:
		out.state = &run.GameRunState{}
		out.status, out.body, err = r.call(ctx, http.MethodPost, runPath+"/"+step.Action, struct{}{}, out.state)

	default:
		return fail(fmt.Errorf("unknown action %q", step.Action))
	}
	if err != nil {
		return fail(err)
	}

	if err := r.checkExpectations(step.Expectations, out); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// checkExpectations validates the test expectations against what the step produced
func (r *Runner) checkExpectations(exp Expectations, out stepOutcome) error {
	wantStatus := http.StatusOK
	if exp.Status != nil {
		wantStatus = *exp.Status
	}
	if out.status != wantStatus {
		return fmt.Errorf("expected status %d, got %d: %s", wantStatus, out.status, strings.TrimSpace(string(out.body)))
	}
	if wantStatus != http.StatusOK {
		return nil
	}

	if s := out.state; s != nil {
		if exp.Day != nil && s.Day != *exp.Day {
			return fmt.Errorf("expected day %d, got %d", *exp.Day, s.Day)
		}
		if exp.Phase != nil && string(s.Phase()) != *exp.Phase {
			return fmt.Errorf("expected phase %s, got %s", *exp.Phase, s.Phase())
		}
		if exp.SupportPeople != nil && s.SupportPeople != *exp.SupportPeople {
			return fmt.Errorf("expected people support %.0f, got %.0f", *exp.SupportPeople, s.SupportPeople)
		}
		if exp.SupportMiddle != nil && s.SupportMiddle != *exp.SupportMiddle {
			return fmt.Errorf("expected middle support %.0f, got %.0f", *exp.SupportMiddle, s.SupportMiddle)
		}
		if exp.SupportMom != nil && s.SupportMom != *exp.SupportMom {
			return fmt.Errorf("expected mom support %.0f, got %.0f", *exp.SupportMom, s.SupportMom)
		}
		if exp.PoliticalSystem != nil && s.PoliticalSystem != *exp.PoliticalSystem {
			return fmt.Errorf("expected political system %s, got %s", *exp.PoliticalSystem, s.PoliticalSystem)
		}
		if exp.HistoryLength != nil && len(s.History) != *exp.HistoryLength {
			return fmt.Errorf("expected %d history entries, got %d", *exp.HistoryLength, len(s.History))
		}
		if exp.Submitted != nil && s.FinalScoreSubmitted != *exp.Submitted {
			return fmt.Errorf("expected submitted to be %t, got %t", *exp.Submitted, s.FinalScoreSubmitted)
		}
	}

	if f := out.finalize; f != nil {
		if exp.Score != nil && f.Score != *exp.Score {
			return fmt.Errorf("expected score %d, got %d", *exp.Score, f.Score)
		}
		if exp.Cached != nil && f.Cached != *exp.Cached {
			return fmt.Errorf("expected cached to be %t, got %t", *exp.Cached, f.Cached)
		}
	}
	if exp.RankEvent && out.rank == nil {
		return fmt.Errorf("expected a rank.updated event")
	}

	if reply := out.reply; reply != nil {
		if exp.ActionCount != nil && len(reply.Actions) != *exp.ActionCount {
			return fmt.Errorf("expected %d actions, got %d", *exp.ActionCount, len(reply.Actions))
		}
		if exp.HasMonologue != nil && (reply.Monologue != "") != *exp.HasMonologue {
			return fmt.Errorf("expected monologue presence %t, got %q", *exp.HasMonologue, reply.Monologue)
		}
	}

	if len(exp.ResponseContains) > 0 {
		lowerResponse := strings.ToLower(string(out.body))
		for _, expectedText := range exp.ResponseContains {
			if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
				return fmt.Errorf("expected response to contain '%s', but it didn't", expectedText)
			}
		}
	}

	return nil
}
