package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// errorEnvelope is the machine-readable failure shape emitted under
// --json-only. Callers parse the type tag before the message.
type errorEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// jsonOnly reports whether machine-readable output was requested. The
// flag may appear on an invocation cobra rejects before flag parsing
// (unknown subcommand), so the raw args are checked as a fallback.
func jsonOnly() bool {
	if viper.GetBool("json_only") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if arg == "--json-only" || arg == "--json-only=true" {
			return true
		}
	}
	return false
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emitError reports a failure to whoever is listening: a structured
// object on stdout under --json-only, otherwise a plain line on stderr.
func emitError(err error) {
	if err == nil {
		return
	}
	if jsonOnly() {
		printJSON(errorEnvelope{Type: "Error", Message: err.Error()})
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// statusf prints progress to stderr unless machine-readable output was
// requested.
func statusf(format string, args ...any) {
	if jsonOnly() {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
