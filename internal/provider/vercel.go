package provider

import (
	"context"
	"fmt"
	"io"
)

type vercelAdapter struct {
	token  string
	method string
}

func (v *vercelAdapter) Name() string   { return "vercel" }
func (v *vercelAdapter) Method() string { return v.method }

func (v *vercelAdapter) Deploy(ctx context.Context, in DeployInput, live io.Writer) (*Outcome, error) {
	if v.method == "api" {
		// Direct file-manifest uploads need the full Vercel deployment
		// API; the CLI covers the same ground, so api deploys route
		// through it with a note.
		fmt.Fprintln(live, "[vercel] api method not supported directly; using the vercel CLI")
	}

	args := []string{"deploy", "--prod", "--yes"}
	if v.token != "" {
		args = append(args, "--token", v.token)
	}
	if in.Name != "" {
		args = append(args, "--name", in.Name)
	}

	out, err := runStreaming(ctx, in.Path, nil, live, "vercel", args...)
	if err != nil {
		return &Outcome{Logs: out, Err: fmt.Sprintf("vercel deploy failed: %v", err)}, nil
	}

	// The CLI prints the deployment URL on its own line.
	url := extractDeploymentURL(out)
	if url == "" {
		return &Outcome{Logs: out, Err: "vercel deploy produced no deployment URL"}, nil
	}
	return &Outcome{URL: url, Logs: out}, nil
}
