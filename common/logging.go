// Package common provides the shared logging infrastructure for deployctl.
// Log output is routed by level: error messages go to stderr so that shell
// callers and orchestration wrappers can capture failures separately, while
// everything else goes to stdout.
//
// The logging system is built on logrus. A global Logger instance is used
// across all packages for consistent formatting and routing. Secret values
// are never logged in full at any level; debug output carries redacted
// values only.
package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes formatted log entries to stdout or stderr based on
// their level. Error-level entries (identified by the "level=error" marker
// logrus emits in both text and JSON-ish forms) go to stderr.
type OutputSplitter struct{}

// Write implements io.Writer for the OutputSplitter.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the global logger instance for deployctl. It is pre-configured
// with the OutputSplitter; commands adjust level and format at startup.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
	Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetVerbose switches the global logger to debug level.
func SetVerbose(verbose bool) {
	if verbose {
		Logger.SetLevel(logrus.DebugLevel)
		return
	}
	Logger.SetLevel(logrus.InfoLevel)
}

// Redact shortens a secret for safe inclusion in debug output. Only the
// first two characters survive.
func Redact(secret string) string {
	if len(secret) <= 2 {
		return "**"
	}
	return secret[:2] + "..."
}
