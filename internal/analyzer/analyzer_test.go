package analyzer

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAnalyzeRejectsBadPath(t *testing.T) {
	if _, err := Analyze(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Analyze(missing dir) error = nil, want error")
	}

	dir := t.TempDir()
	writeFile(t, dir, "file.txt", "x")
	if _, err := Analyze(filepath.Join(dir, "file.txt")); err == nil {
		t.Error("Analyze(regular file) error = nil, want error")
	}
}

func TestAnalyzeNodeProjects(t *testing.T) {
	tests := []struct {
		name        string
		packageJSON string
		extraFiles  map[string]string
		wantType    string
		wantOutput  string
		wantBuild   string
	}{
		{
			name:        "create react app",
			packageJSON: `{"dependencies":{"react":"^18.0.0","react-scripts":"5.0.1"},"scripts":{"build":"react-scripts build"}}`,
			wantType:    TypeCRA,
			wantOutput:  "build",
			wantBuild:   "npm run build",
		},
		{
			name:        "vite react",
			packageJSON: `{"dependencies":{"react":"^18.0.0"},"devDependencies":{"vite":"^5.0.0"},"scripts":{"build":"vite build"}}`,
			wantType:    TypeViteReact,
			wantOutput:  "dist",
			wantBuild:   "npm run build",
		},
		{
			name:        "next server build",
			packageJSON: `{"dependencies":{"next":"14.0.0"},"scripts":{"build":"next build"}}`,
			wantType:    TypeNext,
			wantOutput:  ".next",
			wantBuild:   "npm run build",
		},
		{
			name:        "next static export via build script",
			packageJSON: `{"dependencies":{"next":"14.0.0"},"scripts":{"build":"next build && next export"}}`,
			wantType:    TypeNext,
			wantOutput:  "out",
			wantBuild:   "npm run build",
		},
		{
			name:        "next static export via export script",
			packageJSON: `{"dependencies":{"next":"14.0.0"},"scripts":{"build":"next build","export":"next export"}}`,
			wantType:    TypeNext,
			wantOutput:  "out",
			wantBuild:   "npm run build",
		},
		{
			name:        "express server",
			packageJSON: `{"dependencies":{"express":"^4.18.0"},"scripts":{"start":"node index.js"}}`,
			wantType:    TypeExpress,
		},
		{
			name:        "node project with static entry",
			packageJSON: `{"dependencies":{"lodash":"^4.0.0"}}`,
			extraFiles:  map[string]string{"index.html": "<html></html>"},
			wantType:    TypeStatic,
			wantOutput:  ".",
		},
		{
			name:        "unrecognized node project",
			packageJSON: `{"dependencies":{"lodash":"^4.0.0"}}`,
			wantType:    TypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "package.json", tt.packageJSON)
			for name, content := range tt.extraFiles {
				writeFile(t, dir, name, content)
			}

			meta, err := Analyze(dir)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}

			if meta.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", meta.Type, tt.wantType)
			}
			if meta.BuildOutputDir != tt.wantOutput {
				t.Errorf("BuildOutputDir = %q, want %q", meta.BuildOutputDir, tt.wantOutput)
			}
			if meta.BuildCommand != tt.wantBuild {
				t.Errorf("BuildCommand = %q, want %q", meta.BuildCommand, tt.wantBuild)
			}
		})
	}
}

func TestAnalyzeFlaskProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "Flask==3.0.0\ngunicorn==21.0.0\n")
	writeFile(t, dir, "app.py", "from flask import Flask\napp = Flask(__name__)\n")

	meta, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if meta.Type != TypeFlask {
		t.Errorf("Type = %s, want %s", meta.Type, TypeFlask)
	}
	if meta.StartCommand != "python app.py" {
		t.Errorf("StartCommand = %q, want python app.py", meta.StartCommand)
	}
}

func TestAnalyzeStaticProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html><body>hi</body></html>")
	writeFile(t, dir, "style.css", "body { margin: 0 }")

	meta, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if meta.Type != TypeStatic {
		t.Errorf("Type = %s, want %s", meta.Type, TypeStatic)
	}
	if meta.BuildOutputDir != "." {
		t.Errorf("BuildOutputDir = %q, want .", meta.BuildOutputDir)
	}
	if meta.BuildCommand != "" {
		t.Errorf("BuildCommand = %q, want empty", meta.BuildCommand)
	}
	if meta.EstimatedBuildTimeSec != 0 {
		t.Errorf("EstimatedBuildTimeSec = %d, want 0 without a build command", meta.EstimatedBuildTimeSec)
	}
	if meta.ProjectSizeBytes == 0 {
		t.Error("ProjectSizeBytes = 0, want the file sizes counted")
	}
}

func TestAnalyzeMarkerFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"dependencies":{"express":"^4.18.0"}}`)
	writeFile(t, dir, "Dockerfile", "FROM node:20\n")
	writeFile(t, dir, "Procfile", "web: node index.js\n")
	writeFile(t, dir, ".env", "DATABASE_URL=postgres://localhost/dev\nPORT=3000\n# comment\n")

	meta, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !meta.HasDockerfile {
		t.Error("HasDockerfile = false, want true")
	}
	if !meta.HasProcfile {
		t.Error("HasProcfile = false, want true")
	}
	if !meta.UsesEnvFile {
		t.Error("UsesEnvFile = false, want true")
	}

	want := []string{"DATABASE_URL", "PORT"}
	if len(meta.EnvVars) != len(want) {
		t.Fatalf("EnvVars = %v, want %v", meta.EnvVars, want)
	}
	for i, v := range want {
		if meta.EnvVars[i] != v {
			t.Errorf("EnvVars[%d] = %s, want %s (sorted)", i, meta.EnvVars[i], v)
		}
	}
}

func TestAnalyzeComposeEnvVars(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html></html>")
	writeFile(t, dir, "docker-compose.yml", "services:\n  web:\n    image: nginx\n    environment:\n      - API_KEY=${API_KEY}\n      - REGION=${REGION:-us-east-1}\n")

	meta, err := Analyze(dir)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	want := map[string]bool{"API_KEY": true, "REGION": true}
	for _, v := range meta.EnvVars {
		if !want[v] {
			t.Errorf("unexpected env var %s", v)
		}
		delete(want, v)
	}
	for v := range want {
		t.Errorf("env var %s not detected", v)
	}
}

func TestDirSizeSkipsDependencyDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html></html>")

	nm := filepath.Join(dir, "node_modules", "pkg")
	if err := os.MkdirAll(nm, 0o755); err != nil {
		t.Fatal(err)
	}
	big := make([]byte, 1024*1024)
	if err := os.WriteFile(filepath.Join(nm, "big.js"), big, 0o644); err != nil {
		t.Fatal(err)
	}

	size := dirSize(dir)
	if size >= uint64(len(big)) {
		t.Errorf("dirSize = %d, want node_modules excluded", size)
	}
}

func TestEstimateBuildTime(t *testing.T) {
	tests := []struct {
		name string
		meta ProjectMeta
		want uint64
	}{
		{"no build command", ProjectMeta{ProjectSizeBytes: 100 << 20}, 0},
		{"small project floor", ProjectMeta{BuildCommand: "npm run build", ProjectSizeBytes: 1024}, 30},
		{"capped at ten minutes", ProjectMeta{BuildCommand: "npm run build", ProjectSizeBytes: 10 << 30}, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateBuildTime(&tt.meta); got != tt.want {
				t.Errorf("estimateBuildTime() = %d, want %d", got, tt.want)
			}
		})
	}
}
