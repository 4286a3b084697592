// Package config builds the process-wide configuration value.
//
// Every knob is resolved exactly once here, from flags (already bound into
// viper), the config file and the environment. Components receive a Config
// and never read ambient state themselves.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mock outcomes recognized from FAST_DEPLOY_MOCK. When set, provider
// adapters return a deterministic result and perform no process or
// network call.
const (
	MockSuccess   = "success"
	MockFail      = "fail"
	MockRateLimit = "rate_limit"
)

type Config struct {
	Debug          bool
	NoLLM          bool
	NonInteractive bool

	// StateDir holds deployments.json and per-record log artifacts.
	StateDir string

	// Advisory service settings.
	AIProvider      string
	AIAPIKey        string
	AIModel         string
	AdvisoryTimeout time.Duration

	// Provider credentials. Absence never blocks a decision; it only adds
	// a risk note and may fail the deploy later.
	NetlifyToken string
	VercelToken  string

	// MockMode is the test seam: success, fail or rate_limit.
	MockMode string
}

// Load resolves the full configuration. Called once from the command layer
// after cobra/viper flag binding.
func Load() Config {
	// Best-effort .env in the working directory, same as the original tool.
	_ = godotenv.Load()

	cfg := Config{
		Debug:           viper.GetBool("debug"),
		NoLLM:           viper.GetBool("no_llm"),
		NonInteractive:  viper.GetBool("non_interactive"),
		StateDir:        viper.GetString("state_dir"),
		AIProvider:      viper.GetString("ai.provider"),
		AIAPIKey:        viper.GetString("ai.api_key"),
		AIModel:         viper.GetString("ai.model"),
		AdvisoryTimeout: 15 * time.Second,
		NetlifyToken:    firstNonEmpty(viper.GetString("providers.netlify.token"), os.Getenv("NETLIFY_AUTH_TOKEN")),
		VercelToken:     firstNonEmpty(viper.GetString("providers.vercel.token"), os.Getenv("VERCEL_TOKEN")),
		MockMode:        strings.TrimSpace(os.Getenv("FAST_DEPLOY_MOCK")),
	}

	if cfg.AIProvider == "" {
		cfg.AIProvider = "openai"
	}
	if cfg.AIAPIKey == "" {
		switch cfg.AIProvider {
		case "anthropic":
			cfg.AIAPIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			cfg.AIAPIKey = os.Getenv("GEMINI_API_KEY")
		default:
			cfg.AIAPIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.AIModel == "" && cfg.AIProvider == "openai" {
		cfg.AIModel = "gpt-4o-mini"
	}

	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		cfg.StateDir = filepath.Join(home, ".dipole", "state")
	}

	switch cfg.MockMode {
	case "", MockSuccess, MockFail, MockRateLimit:
	default:
		// Unknown value behaves like no mock at all.
		cfg.MockMode = ""
	}

	return cfg
}

// AdvisoryEnabled reports whether the advisory refinement stage may run.
// Gemini can authenticate through Application Default Credentials, so a
// missing key only disables the other providers.
func (c Config) AdvisoryEnabled() bool {
	if c.NoLLM {
		return false
	}
	return c.AIAPIKey != "" || c.AIProvider == "gemini"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
