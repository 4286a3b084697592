// Package provider holds the adapters that perform an actual deployment.
// The set is closed: {netlify, vercel} plus the deterministic mock used
// when the test-mode override is configured. Adding a provider is a new
// variant here, not a string branch elsewhere.
package provider

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dipole-sh/dipole/internal/config"
)

// DeployInput is what an adapter needs to push one deploy.
type DeployInput struct {
	Path           string
	BuildOutputDir string
	Name           string
}

// Outcome is the adapter contract. A non-empty URL means success; an
// empty URL is failure regardless of Err. Adapters never synthesize URLs.
type Outcome struct {
	URL  string `json:"url"`
	Logs string `json:"logs"`
	Err  string `json:"error,omitempty"`
}

// Adapter performs a deployment against one hosting provider.
type Adapter interface {
	Name() string
	Method() string
	// Deploy streams its log output to live as it is produced and also
	// returns the full captured text in the outcome.
	Deploy(ctx context.Context, in DeployInput, live io.Writer) (*Outcome, error)
}

// For returns the adapter for a provider/method pair. With a mock mode
// configured every pair resolves to the mock adapter, so no process or
// network call can happen.
func For(name, method string, cfg config.Config) (Adapter, error) {
	switch name {
	case "netlify", "vercel":
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}

	if cfg.MockMode != "" {
		return &mockAdapter{name: name, method: method, mode: cfg.MockMode}, nil
	}

	switch name {
	case "netlify":
		return &netlifyAdapter{token: cfg.NetlifyToken, method: method}, nil
	default:
		return &vercelAdapter{token: cfg.VercelToken, method: method}, nil
	}
}

// runStreaming executes a provider CLI, forwarding merged stdout/stderr
// to w line by line while capturing the full text. Emission order is
// preserved across both sinks.
func runStreaming(ctx context.Context, dir string, extraEnv []string, w io.Writer, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	stdout, _ := cmd.StdoutPipe()
	stderr, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		return "", err
	}

	out, streamErr := streamMerged(w, stdout, stderr)
	if streamErr != nil {
		_ = cmd.Process.Kill()
		return out, streamErr
	}

	if err := cmd.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func streamMerged(w io.Writer, readers ...io.Reader) (string, error) {
	merged := io.MultiReader(readers...)
	var captured strings.Builder
	scanner := bufio.NewScanner(merged)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		captured.WriteString(line)
		captured.WriteString("\n")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return captured.String(), err
		}
	}
	return captured.String(), scanner.Err()
}

// extractDeploymentURL returns the first https URL that appears on its
// own line of CLI output.
func extractDeploymentURL(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "https://") && !strings.ContainsAny(line, " \t") {
			return line
		}
	}
	return ""
}
