package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/dipole-sh/dipole/internal/analyzer"
	"github.com/dipole-sh/dipole/internal/config"
	"github.com/dipole-sh/dipole/internal/plan"
	"github.com/dipole-sh/dipole/internal/rules"
	"github.com/dipole-sh/dipole/internal/store"
)

func testDecision() rules.Decision {
	return rules.Decision{
		Provider:   rules.ProviderNetlify,
		Method:     rules.MethodCLI,
		Confidence: 0.9,
		Rationale:  []string{"small static build, fast path"},
		Alternatives: []rules.Alternative{
			{Provider: rules.ProviderVercel, Method: rules.MethodCLI, When: "if netlify is unavailable"},
		},
	}
}

func testSetup(t *testing.T, mode string) (config.Config, *store.Store, *analyzer.ProjectMeta, rules.Decision, plan.Plan) {
	t.Helper()
	cfg := config.Config{MockMode: mode, StateDir: t.TempDir()}
	st, err := store.Open(cfg.StateDir)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	meta := &analyzer.ProjectMeta{Type: analyzer.TypeStatic, ProjectSizeBytes: 2_000_000}
	dec := testDecision()
	pl := plan.Build(dec, meta, "/tmp/project")
	return cfg, st, meta, dec, pl
}

func TestExecuteMockSuccess(t *testing.T) {
	cfg, st, meta, dec, pl := testSetup(t, config.MockSuccess)

	var live strings.Builder
	rec, err := Execute(context.Background(), cfg, st, meta, dec, pl, "/tmp/project", Options{Live: &live})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if rec.Status != store.StatusSuccess {
		t.Errorf("Status = %s, want %s", rec.Status, store.StatusSuccess)
	}
	if rec.URL == nil || *rec.URL != "https://mock.netlify.app" {
		t.Errorf("URL = %v, want https://mock.netlify.app", rec.URL)
	}
	if rec.Provider != rules.ProviderNetlify {
		t.Errorf("Provider = %s, want netlify", rec.Provider)
	}
	if rec.MetaHash == "" || rec.DecisionHash == "" {
		t.Error("hashes must be recorded")
	}

	// The record must be persisted with its log artifact.
	stored, err := st.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.LogsPath == nil {
		t.Fatal("LogsPath = nil, want stored artifact")
	}
	logText, err := st.ReadLog(rec.ID)
	if err != nil {
		t.Fatalf("ReadLog() error = %v", err)
	}
	if !strings.Contains(logText, "mock") {
		t.Errorf("stored log = %q, want adapter output", logText)
	}
}

func TestExecuteMockFailures(t *testing.T) {
	for _, mode := range []string{config.MockFail, config.MockRateLimit} {
		t.Run(mode, func(t *testing.T) {
			cfg, st, meta, dec, pl := testSetup(t, mode)

			var live strings.Builder
			rec, err := Execute(context.Background(), cfg, st, meta, dec, pl, "/tmp/project", Options{Live: &live})
			if err == nil {
				t.Fatal("Execute() error = nil, want aggregate failure")
			}

			if rec.Status != store.StatusFailed {
				t.Errorf("Status = %s, want %s", rec.Status, store.StatusFailed)
			}
			if rec.URL != nil {
				t.Errorf("URL = %v, want nil on failure", *rec.URL)
			}
			// Both candidates ran; the record names the last adapter
			// actually invoked, not the decided provider.
			if rec.Provider != rules.ProviderVercel {
				t.Errorf("Provider = %s, want the final attempt's vercel", rec.Provider)
			}
			if rec.Method != rules.MethodCLI {
				t.Errorf("Method = %s, want cli", rec.Method)
			}
		})
	}
}

func TestExecuteFallbackRetainsAllAttemptLogs(t *testing.T) {
	cfg, st, meta, dec, pl := testSetup(t, config.MockFail)

	var live strings.Builder
	rec, err := Execute(context.Background(), cfg, st, meta, dec, pl, "/tmp/project", Options{Live: &live})
	if err == nil {
		t.Fatal("Execute() error = nil, want failure after exhausting candidates")
	}

	logText, readErr := st.ReadLog(rec.ID)
	if readErr != nil {
		t.Fatalf("ReadLog() error = %v", readErr)
	}
	if !strings.Contains(logText, "attempt 1/2 via netlify") {
		t.Errorf("log lost the first attempt:\n%s", logText)
	}
	if !strings.Contains(logText, "attempt 2/2 via vercel") {
		t.Errorf("log lost the fallback attempt:\n%s", logText)
	}
	if live.String() != logText {
		t.Errorf("live output diverges from the stored artifact")
	}
}

func TestExecuteDryRun(t *testing.T) {
	cfg, st, meta, dec, pl := testSetup(t, "")

	var live strings.Builder
	rec, err := Execute(context.Background(), cfg, st, meta, dec, pl, "/tmp/project", Options{DryRun: true, Live: &live})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if rec.Status != store.StatusDryRun {
		t.Errorf("Status = %s, want %s", rec.Status, store.StatusDryRun)
	}
	if rec.URL != nil {
		t.Errorf("URL = %v, want nil", *rec.URL)
	}
	if rec.DurationSec != 0 {
		t.Errorf("DurationSec = %v, want 0", rec.DurationSec)
	}
	if strings.Contains(live.String(), "attempt") {
		t.Errorf("dry run reached the adapter loop: %q", live.String())
	}

	// Dry runs are part of the history too.
	if _, err := st.Get(rec.ID); err != nil {
		t.Errorf("dry-run record not persisted: %v", err)
	}
}

func TestExecuteSessionRecorded(t *testing.T) {
	cfg, st, meta, dec, pl := testSetup(t, config.MockSuccess)

	rec, err := Execute(context.Background(), cfg, st, meta, dec, pl, "/tmp/project", Options{
		SessionID: "session-42",
		Live:      &strings.Builder{},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rec.SessionID != "session-42" {
		t.Errorf("SessionID = %q, want session-42", rec.SessionID)
	}
}

func TestExecuteNilStore(t *testing.T) {
	cfg, _, meta, dec, pl := testSetup(t, config.MockSuccess)

	// Persistence problems must never fail a successful deploy.
	rec, err := Execute(context.Background(), cfg, nil, meta, dec, pl, "/tmp/project", Options{Live: &strings.Builder{}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rec.Status != store.StatusSuccess {
		t.Errorf("Status = %s, want %s", rec.Status, store.StatusSuccess)
	}
}

func TestFallbackChainDeduplicates(t *testing.T) {
	dec := testDecision()
	dec.Alternatives = append(dec.Alternatives, rules.Alternative{
		Provider: rules.ProviderNetlify, Method: rules.MethodAPI, When: "duplicate of the primary",
	})

	chain := fallbackChain(dec)

	if len(chain) != 2 {
		t.Fatalf("len(chain) = %d, want 2", len(chain))
	}
	if chain[0].provider != rules.ProviderNetlify || chain[1].provider != rules.ProviderVercel {
		t.Errorf("chain = %v, want netlify then vercel", chain)
	}
}

func TestEndToEndStaticProject(t *testing.T) {
	cfg := config.Config{MockMode: config.MockSuccess, StateDir: t.TempDir()}
	st, err := store.Open(cfg.StateDir)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}

	meta := &analyzer.ProjectMeta{Type: analyzer.TypeStatic, ProjectSizeBytes: 2_000_000}
	dec := rules.Decide(meta, rules.Overrides{}, rules.Tokens{Netlify: true, Vercel: true})

	if dec.Provider != rules.ProviderNetlify || dec.Method != rules.MethodCLI {
		t.Fatalf("Decision = %s/%s, want netlify/cli", dec.Provider, dec.Method)
	}

	pl := plan.Build(dec, meta, "/tmp/project")
	deployStep := pl.Steps[len(pl.Steps)-1]
	if !strings.HasPrefix(deployStep.Run, "netlify deploy") {
		t.Fatalf("deploy step = %q, want a netlify deploy command", deployStep.Run)
	}

	rec, err := Execute(context.Background(), cfg, st, meta, dec, pl, "/tmp/project", Options{Live: &strings.Builder{}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rec.Status != store.StatusSuccess {
		t.Errorf("Status = %s, want success", rec.Status)
	}
	if rec.URL == nil || *rec.URL != "https://mock.netlify.app" {
		t.Errorf("URL = %v, want https://mock.netlify.app", rec.URL)
	}
}
