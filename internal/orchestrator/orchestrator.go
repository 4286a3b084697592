// Package orchestrator runs one deployment attempt through the chosen
// provider adapter, falling back to the next candidate on failure, and
// produces the persisted deploy record.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dipole-sh/dipole/internal/analyzer"
	"github.com/dipole-sh/dipole/internal/config"
	"github.com/dipole-sh/dipole/internal/plan"
	"github.com/dipole-sh/dipole/internal/provider"
	"github.com/dipole-sh/dipole/internal/redact"
	"github.com/dipole-sh/dipole/internal/rules"
	"github.com/dipole-sh/dipole/internal/store"
)

// Options control one deploy invocation.
type Options struct {
	DryRun    bool
	SessionID string
	// Live receives log output as it is produced. Defaults to stderr.
	Live io.Writer
}

type candidate struct {
	provider string
	method   string
}

// Execute performs the deployment described by dec and pl, persists the
// resulting record and returns it. All-candidates failure surfaces as an
// error alongside a status=failed record; persistence problems never
// fail an otherwise successful deploy.
func Execute(ctx context.Context, cfg config.Config, st *store.Store, meta *analyzer.ProjectMeta, dec rules.Decision, pl plan.Plan, projectPath string, opts Options) (*store.DeployRecord, error) {
	live := opts.Live
	if live == nil {
		live = os.Stderr
	}

	rec := store.DeployRecord{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		ProjectPath:  projectPath,
		Provider:     dec.Provider,
		Method:       dec.Method,
		Status:       store.StatusFailed,
		MetaHash:     redact.HashJSON(meta),
		DecisionHash: redact.HashJSON(dec),
		SessionID:    opts.SessionID,
	}

	if opts.DryRun {
		rec.Status = store.StatusDryRun
		persist(st, &rec, nil, live)
		return &rec, nil
	}

	start := time.Now()
	var logBuf strings.Builder
	sink := io.MultiWriter(&logBuf, live)

	if err := runBuildStep(ctx, cfg, pl, sink); err != nil {
		fmt.Fprintf(sink, "[deploy] build step failed: %v\n", err)
		rec.DurationSec = time.Since(start).Seconds()
		persist(st, &rec, []byte(logBuf.String()), live)
		return &rec, fmt.Errorf("build failed: %w", err)
	}

	candidates := fallbackChain(dec)
	var failures []string

	for i, cand := range candidates {
		fmt.Fprintf(sink, "[deploy] attempt %d/%d via %s (%s)\n", i+1, len(candidates), cand.provider, cand.method)

		// The record always reflects the last adapter actually invoked;
		// earlier failures stay in the captured log.
		rec.Provider = cand.provider
		rec.Method = cand.method

		adapter, err := provider.For(cand.provider, cand.method, cfg)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", cand.provider, err))
			fmt.Fprintf(sink, "[deploy] %s unavailable: %v\n", cand.provider, err)
			continue
		}

		outcome, err := adapter.Deploy(ctx, provider.DeployInput{
			Path:           projectPath,
			BuildOutputDir: pl.Artifacts.OutputDir,
		}, sink)

		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("%s: %v", cand.provider, err))
			fmt.Fprintf(sink, "[deploy] attempt via %s errored: %v\n", cand.provider, err)
		case outcome == nil || outcome.URL == "":
			reason := "no deployment URL"
			if outcome != nil && outcome.Err != "" {
				reason = outcome.Err
			}
			failures = append(failures, fmt.Sprintf("%s: %s", cand.provider, reason))
			fmt.Fprintf(sink, "[deploy] attempt via %s failed: %s\n", cand.provider, reason)
		default:
			url := outcome.URL
			rec.URL = &url
			rec.Status = store.StatusSuccess
		}

		if rec.Status == store.StatusSuccess {
			break
		}
	}

	rec.DurationSec = time.Since(start).Seconds()

	if rec.Status == store.StatusSuccess && cfg.MockMode == "" {
		verifyDeployment(ctx, *rec.URL, 90*time.Second, sink)
	}

	persist(st, &rec, []byte(logBuf.String()), live)

	if rec.Status != store.StatusSuccess {
		return &rec, fmt.Errorf("all %d deploy attempt(s) failed: %s", len(candidates), strings.Join(failures, "; "))
	}
	return &rec, nil
}

// fallbackChain orders the candidates: the decided provider first, then
// any alternatives that name a different provider.
func fallbackChain(dec rules.Decision) []candidate {
	chain := []candidate{{provider: dec.Provider, method: dec.Method}}
	seen := map[string]bool{dec.Provider: true}
	for _, alt := range dec.Alternatives {
		if seen[alt.Provider] {
			continue
		}
		seen[alt.Provider] = true
		chain = append(chain, candidate{provider: alt.Provider, method: alt.Method})
	}
	return chain
}

// runBuildStep executes the plan's build step, if any. Mock mode skips
// it: the adapter seam promises no process calls at all.
func runBuildStep(ctx context.Context, cfg config.Config, pl plan.Plan, sink io.Writer) error {
	var build *plan.Step
	for i := range pl.Steps {
		if pl.Steps[i].ID == "build" {
			build = &pl.Steps[i]
			break
		}
	}
	if build == nil || build.Run == "" {
		return nil
	}
	if cfg.MockMode != "" {
		fmt.Fprintf(sink, "[deploy] mock mode: skipping build step %q\n", build.Run)
		return nil
	}

	fmt.Fprintf(sink, "[deploy] running build: %s\n", build.Run)
	cmd := exec.CommandContext(ctx, "sh", "-c", build.Run)
	cmd.Dir = build.Cwd
	cmd.Stdout = sink
	cmd.Stderr = sink
	return cmd.Run()
}

// verifyDeployment polls the deployed URL for a 2xx. Advisory only: a
// slow edge rollout must not flip a successful deploy to failed.
func verifyDeployment(ctx context.Context, url string, maxWait time.Duration, sink io.Writer) {
	fmt.Fprintf(sink, "[verify] waiting for %s to respond\n", url)

	client := &http.Client{Timeout: 10 * time.Second}
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			fmt.Fprintf(sink, "[verify] cancelled: %v\n", ctx.Err())
			return
		default:
		}

		resp, err := client.Get(url)
		if err == nil {
			status := resp.StatusCode
			resp.Body.Close()
			if status >= 200 && status < 300 {
				fmt.Fprintf(sink, "[verify] endpoint returned %d\n", status)
				return
			}
			fmt.Fprintf(sink, "[verify] endpoint returned %d, retrying\n", status)
		} else {
			fmt.Fprintf(sink, "[verify] endpoint not ready: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
	fmt.Fprintf(sink, "[verify] gave up waiting for a 2xx after %s\n", maxWait)
}

// persist appends the record and its log artifact. Best-effort: a disk
// problem is reported on the live sink but never overrides the deploy
// outcome.
func persist(st *store.Store, rec *store.DeployRecord, logData []byte, live io.Writer) {
	if st == nil {
		return
	}
	if len(logData) > 0 {
		path, err := st.WriteLog(rec.ID, logData)
		if err != nil {
			fmt.Fprintf(live, "[deploy] warning: failed to write log artifact: %v\n", err)
		} else {
			rec.LogsPath = &path
		}
	}
	if err := st.Append(*rec); err != nil {
		fmt.Fprintf(live, "[deploy] warning: failed to persist deploy record: %v\n", err)
	}
}
