// Package cli provides provider CLI tool detection and interactive
// confirmation prompts.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// DependencyChecker handles detection of provider CLI tools
type DependencyChecker struct {
	debug bool
}

// NewDependencyChecker creates a new dependency checker
func NewDependencyChecker(debug bool) *DependencyChecker {
	return &DependencyChecker{debug: debug}
}

// DependencyStatus represents the status of a CLI tool
type DependencyStatus struct {
	Name      string
	Installed bool
	Version   string
	Required  bool
	Message   string
}

var versionRe = regexp.MustCompile(`\d+\.\d+\.\d+`)

// CheckAll checks both provider CLIs
func (d *DependencyChecker) CheckAll() []DependencyStatus {
	return []DependencyStatus{
		d.CheckNetlify(),
		d.CheckVercel(),
	}
}

// CheckProvider checks the CLI for the named provider. Unknown provider
// names report as not installed.
func (d *DependencyChecker) CheckProvider(name string) DependencyStatus {
	switch name {
	case "netlify":
		return d.CheckNetlify()
	case "vercel":
		return d.CheckVercel()
	default:
		return DependencyStatus{
			Name:    name,
			Message: fmt.Sprintf("unknown provider %q", name),
		}
	}
}

// CheckNetlify checks if the netlify CLI is installed
func (d *DependencyChecker) CheckNetlify() DependencyStatus {
	status := DependencyStatus{
		Name:     "netlify",
		Required: true,
	}

	path, err := exec.LookPath("netlify")
	if err != nil {
		status.Message = "netlify CLI is not installed (npm install -g netlify-cli)"
		return status
	}

	status.Installed = true
	status.Version = toolVersion(path, "--version")
	return status
}

// CheckVercel checks if the vercel CLI is installed
func (d *DependencyChecker) CheckVercel() DependencyStatus {
	status := DependencyStatus{
		Name:     "vercel",
		Required: true,
	}

	path, err := exec.LookPath("vercel")
	if err != nil {
		status.Message = "vercel CLI is not installed (npm install -g vercel)"
		return status
	}

	status.Installed = true
	status.Version = toolVersion(path, "--version")
	return status
}

// toolVersion runs the tool's version flag and extracts a bare x.y.z.
func toolVersion(path string, args ...string) string {
	cmd := exec.CommandContext(context.Background(), path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(string(output))
	if v := versionRe.FindString(text); v != "" {
		return v
	}
	return text
}

// PrintDependencyStatus prints a summary of dependency status
func PrintDependencyStatus(deps []DependencyStatus) {
	fmt.Fprintln(os.Stderr, "\nProvider CLI Status:")
	fmt.Fprintln(os.Stderr, "--------------------")

	for _, dep := range deps {
		icon := "+"
		if !dep.Installed {
			icon = "-"
		}

		version := dep.Version
		if version == "" {
			version = "not installed"
		}

		fmt.Fprintf(os.Stderr, "  [%s] %s: %s\n", icon, dep.Name, version)

		if dep.Message != "" {
			fmt.Fprintf(os.Stderr, "      %s\n", dep.Message)
		}
	}

	fmt.Fprintln(os.Stderr)
}
