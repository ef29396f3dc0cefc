package refdata

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrBusy is returned when Initialize or Reconfigure is already in
	// flight; concurrent attempts are rejected, never queued.
	ErrBusy = eris.New("refdata: initialize or reconfigure already in progress")

	// ErrClosed is returned for any call after Cleanup.
	ErrClosed = eris.New("refdata: manager is cleaned up")

	// ErrNotInitialized is returned for reads before the first Initialize.
	ErrNotInitialized = eris.New("refdata: manager not initialized")
)

// ConfigError marks a structurally invalid configuration. It is the only
// error Initialize and Reconfigure surface for the acquisition pass itself;
// network, parse, and cache failures degrade to fallback data instead.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "refdata: invalid config: " + e.Reason
}

// FailureKind classifies a per-URL acquisition failure for logging and
// bookkeeping. These failures are resolved internally by whole-type fallback
// and never escape to callers.
type FailureKind string

const (
	FailureNetwork FailureKind = "network"
	FailureParse   FailureKind = "parse"
	FailureCache   FailureKind = "cache"
)

// acquireError records why one URL's acquisition failed.
type acquireError struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *acquireError) Error() string {
	return fmt.Sprintf("refdata: %s failure for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *acquireError) Unwrap() error {
	return e.Err
}
