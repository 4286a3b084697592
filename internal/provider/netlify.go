package provider

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const netlifyAPIBase = "https://api.netlify.com/api/v1"

type netlifyAdapter struct {
	token  string
	method string
}

func (n *netlifyAdapter) Name() string   { return "netlify" }
func (n *netlifyAdapter) Method() string { return n.method }

func (n *netlifyAdapter) Deploy(ctx context.Context, in DeployInput, live io.Writer) (*Outcome, error) {
	if n.method == "api" {
		return n.deployWithAPI(ctx, in, live)
	}
	return n.deployWithCLI(ctx, in, live)
}

func (n *netlifyAdapter) deployWithCLI(ctx context.Context, in DeployInput, live io.Writer) (*Outcome, error) {
	dir := in.BuildOutputDir
	if dir == "" {
		dir = "."
	}

	args := []string{"deploy", "--dir", dir, "--prod", "--json"}
	if in.Name != "" {
		args = append(args, "--site", in.Name)
	}

	var env []string
	if n.token != "" {
		env = append(env, "NETLIFY_AUTH_TOKEN="+n.token)
	}

	out, err := runStreaming(ctx, in.Path, env, live, "netlify", args...)
	if err != nil {
		return &Outcome{Logs: out, Err: fmt.Sprintf("netlify deploy failed: %v", err)}, nil
	}

	url := parseNetlifyDeployOutput(out)
	if url == "" {
		return &Outcome{Logs: out, Err: "netlify deploy produced no deployment URL"}, nil
	}
	return &Outcome{URL: url, Logs: out}, nil
}

// parseNetlifyDeployOutput prefers the CLI's --json payload and falls
// back to scanning for a bare URL line.
func parseNetlifyDeployOutput(out string) string {
	start := strings.IndexByte(out, '{')
	end := strings.LastIndexByte(out, '}')
	if start >= 0 && end > start {
		var payload struct {
			DeployURL string `json:"deploy_url"`
			URL       string `json:"url"`
			SSLURL    string `json:"ssl_url"`
		}
		if json.Unmarshal([]byte(out[start:end+1]), &payload) == nil {
			for _, u := range []string{payload.SSLURL, payload.URL, payload.DeployURL} {
				if strings.HasPrefix(u, "https://") {
					return u
				}
			}
		}
	}
	return extractDeploymentURL(out)
}

// deployWithAPI zips the build output and posts it to the Netlify deploy
// endpoint. Creates a fresh site when no site name is given.
func (n *netlifyAdapter) deployWithAPI(ctx context.Context, in DeployInput, live io.Writer) (*Outcome, error) {
	if n.token == "" {
		return &Outcome{Err: "netlify api deploys require NETLIFY_AUTH_TOKEN"}, nil
	}

	dir := filepath.Join(in.Path, in.BuildOutputDir)
	if in.BuildOutputDir == "" || in.BuildOutputDir == "." {
		dir = in.Path
	}

	fmt.Fprintf(live, "[netlify] zipping %s for api deploy\n", dir)
	payload, err := zipDir(dir)
	if err != nil {
		return &Outcome{Err: fmt.Sprintf("failed to zip build output: %v", err)}, nil
	}

	endpoint := netlifyAPIBase + "/sites"
	if in.Name != "" {
		endpoint = fmt.Sprintf("%s/sites/%s/deploys", netlifyAPIBase, in.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/zip")
	req.Header.Set("Authorization", "Bearer "+n.token)

	fmt.Fprintf(live, "[netlify] uploading %d bytes to %s\n", len(payload), endpoint)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return &Outcome{Err: fmt.Sprintf("netlify api request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	logs := fmt.Sprintf("[netlify] api deploy status %d\n", resp.StatusCode)
	fmt.Fprint(live, logs)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Outcome{Logs: logs, Err: fmt.Sprintf("netlify api deploy failed with status %d: %s", resp.StatusCode, truncate(string(body), 500))}, nil
	}

	var result struct {
		SSLURL string `json:"ssl_url"`
		URL    string `json:"url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return &Outcome{Logs: logs, Err: fmt.Sprintf("failed to parse netlify response: %v", err)}, nil
	}

	url := result.SSLURL
	if url == "" {
		url = result.URL
	}
	if url == "" {
		return &Outcome{Logs: logs, Err: "netlify api deploy returned no site URL"}, nil
	}
	return &Outcome{URL: url, Logs: logs}, nil
}

func zipDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if strings.HasPrefix(rel, "node_modules"+string(os.PathSeparator)) || strings.HasPrefix(rel, ".git"+string(os.PathSeparator)) {
			return nil
		}
		f, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = f.Write(data)
		return err
	})
	if err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
