// Package logging wires the fuzzer's structured logging through
// github.com/tliron/commonlog, mirroring cmd/kanso-lsp's
// commonlog.Configure + per-component commonlog.GetLogger convention.
package logging

import (
	"github.com/tliron/commonlog"
)

// Configure sets the process-wide verbosity once at startup. verbosity
// follows commonlog's convention: 0 disables debug output, higher
// values are progressively more verbose. debug mirrors the --debug CLI
// flag and bumps verbosity further when set.
func Configure(verbosity int, debug bool) {
	if debug && verbosity < 1 {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)
}

// Logger is the subset of commonlog.Logger every component here
// actually calls.
type Logger = commonlog.Logger

// For returns the named component's logger, e.g. logging.For("corpus")
// inside internal/corpus, following the same per-package naming the
// teacher uses for commonlog.GetLogger calls.
func For(component string) Logger {
	return commonlog.GetLogger("luafuzz." + component)
}
