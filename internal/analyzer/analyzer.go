// Package analyzer inspects a web project directory and produces the
// metadata every downstream decision is based on.
package analyzer

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project types the rule engine knows how to place.
const (
	TypeCRA       = "cra"
	TypeViteReact = "vite-react"
	TypeNext      = "next"
	TypeStatic    = "static"
	TypeExpress   = "express"
	TypeFlask     = "flask"
	TypeUnknown   = "unknown"
)

// ProjectMeta is the result of analyzing a project directory. Produced
// once per operation and immutable afterward.
type ProjectMeta struct {
	Type                  string   `json:"type"`
	BuildCommand          string   `json:"buildCommand,omitempty"`
	StartCommand          string   `json:"startCommand,omitempty"`
	BuildOutputDir        string   `json:"buildOutputDir,omitempty"`
	HasDockerfile         bool     `json:"hasDockerfile"`
	HasProcfile           bool     `json:"hasProcfile"`
	UsesEnvFile           bool     `json:"usesEnvFile"`
	ProjectSizeBytes      uint64   `json:"projectSizeBytes"`
	EstimatedBuildTimeSec uint64   `json:"estimatedBuildTimeSec"`
	EnvVars               []string `json:"envVars,omitempty"`
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
}

// Analyze inspects a local project directory.
func Analyze(dir string) (*ProjectMeta, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("project path not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path is not a directory: %s", dir)
	}

	meta := &ProjectMeta{Type: TypeUnknown}

	meta.HasDockerfile = fileExists(dir, "Dockerfile") || fileExists(dir, "dockerfile")
	meta.HasProcfile = fileExists(dir, "Procfile")
	meta.UsesEnvFile = fileExists(dir, ".env") || fileExists(dir, ".env.local")

	detectType(dir, meta)
	meta.EnvVars = detectEnvVars(dir)

	meta.ProjectSizeBytes = dirSize(dir)
	meta.EstimatedBuildTimeSec = estimateBuildTime(meta)

	return meta, nil
}

func detectType(dir string, meta *ProjectMeta) {
	if fileExists(dir, "package.json") {
		detectNodeType(dir, meta)
		return
	}

	// Python: flask is the only server type this tool places.
	if fileExists(dir, "requirements.txt") || fileExists(dir, "pyproject.toml") {
		depFile := "requirements.txt"
		if !fileExists(dir, depFile) {
			depFile = "pyproject.toml"
		}
		if contentContains(dir, depFile, "flask") {
			meta.Type = TypeFlask
			meta.StartCommand = pickFlaskStart(dir)
			return
		}
		meta.Type = TypeUnknown
		return
	}

	if fileExists(dir, "index.html") {
		meta.Type = TypeStatic
		meta.BuildOutputDir = "."
		return
	}
}

func detectNodeType(dir string, meta *ProjectMeta) {
	var pkg packageJSON
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil || json.Unmarshal(data, &pkg) != nil {
		meta.Type = TypeUnknown
		return
	}

	hasDep := func(name string) bool {
		if _, ok := pkg.Dependencies[name]; ok {
			return true
		}
		_, ok := pkg.DevDependencies[name]
		return ok
	}

	switch {
	case hasDep("next"):
		meta.Type = TypeNext
		meta.BuildOutputDir = ".next"
		// A "next export" script selects the static-export path. This is
		// the one documented special case; other static-export setups are
		// deliberately not inferred.
		if strings.Contains(pkg.Scripts["build"], "next export") || pkg.Scripts["export"] != "" {
			meta.BuildOutputDir = "out"
		}
	case hasDep("react-scripts"):
		meta.Type = TypeCRA
		meta.BuildOutputDir = "build"
	case hasDep("vite") && hasDep("react"):
		meta.Type = TypeViteReact
		meta.BuildOutputDir = "dist"
	case hasDep("express"):
		meta.Type = TypeExpress
	case fileExists(dir, "index.html"):
		meta.Type = TypeStatic
		meta.BuildOutputDir = "."
	default:
		meta.Type = TypeUnknown
	}

	if pkg.Scripts["build"] != "" {
		meta.BuildCommand = "npm run build"
	}
	if pkg.Scripts["start"] != "" {
		meta.StartCommand = "npm start"
	}
}

func pickFlaskStart(dir string) string {
	for _, entry := range []string{"app.py", "main.py", "wsgi.py"} {
		if fileExists(dir, entry) {
			return "python " + entry
		}
	}
	return "flask run"
}

var composeVarRe = regexp.MustCompile(`\$\{([A-Z][A-Z0-9_]*)[:\-}]`)

// detectEnvVars collects env var names the project references: keys from
// its .env files and ${VAR} references in docker-compose. Values are
// never read into the result.
func detectEnvVars(dir string) []string {
	seen := map[string]bool{}

	for _, name := range []string{".env", ".env.local", ".env.example"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if key, _, ok := strings.Cut(line, "="); ok {
				key = strings.TrimSpace(key)
				if key != "" {
					seen[key] = true
				}
			}
		}
	}

	for _, name := range []string{"docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		// Confirm the file is actually YAML before scanning for ${VAR}.
		var doc map[string]any
		if yaml.Unmarshal(data, &doc) != nil {
			continue
		}
		for _, m := range composeVarRe.FindAllStringSubmatch(string(data), -1) {
			seen[m[1]] = true
		}
		break
	}

	if len(seen) == 0 {
		return nil
	}
	vars := make([]string, 0, len(seen))
	for k := range seen {
		vars = append(vars, k)
	}
	sort.Strings(vars)
	return vars
}

// dirSize walks the project, skipping dependency and VCS directories that
// would dwarf the actual source.
func dirSize(dir string) uint64 {
	var total uint64
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case "node_modules", ".git", ".next", "dist", "build":
				if path != dir {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}

func estimateBuildTime(meta *ProjectMeta) uint64 {
	if meta.BuildCommand == "" {
		return 0
	}
	// Rough floor plus a size-proportional term; matches what the original
	// tool reported closely enough for planning output.
	est := uint64(30) + meta.ProjectSizeBytes/(2*1024*1024)
	if est > 600 {
		est = 600
	}
	return est
}

func fileExists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func contentContains(dir, name, needle string) bool {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), strings.ToLower(needle))
}
