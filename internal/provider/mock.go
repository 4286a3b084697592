package provider

import (
	"context"
	"fmt"
	"io"

	"github.com/dipole-sh/dipole/internal/config"
)

// mockAdapter returns a deterministic outcome without touching the
// network or spawning a process. It is the seam that makes the whole
// deploy path testable without credentials.
type mockAdapter struct {
	name   string
	method string
	mode   string
}

func (m *mockAdapter) Name() string   { return m.name }
func (m *mockAdapter) Method() string { return m.method }

func (m *mockAdapter) Deploy(_ context.Context, in DeployInput, live io.Writer) (*Outcome, error) {
	logs := fmt.Sprintf("[mock] %s deploy of %s (mode=%s)\n", m.name, in.Path, m.mode)

	switch m.mode {
	case config.MockSuccess:
		url := fmt.Sprintf("https://mock.%s.app", m.name)
		logs += fmt.Sprintf("[mock] deployed to %s\n", url)
		fmt.Fprint(live, logs)
		return &Outcome{URL: url, Logs: logs}, nil

	case config.MockRateLimit:
		logs += "[mock] provider responded: rate limit exceeded (429)\n"
		fmt.Fprint(live, logs)
		return &Outcome{Logs: logs, Err: "rate limit exceeded (429)"}, nil

	default: // config.MockFail
		logs += "[mock] provider responded: build failed\n"
		fmt.Fprint(live, logs)
		return &Outcome{Logs: logs, Err: "mock deploy failed"}, nil
	}
}
