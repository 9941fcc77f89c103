package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corey/shodiff/internal/ports"
	bolt "go.etcd.io/bbolt"
)

// isDBLockError returns true if the error chain contains a bbolt lock
// timeout or SQLite's busy error.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, bolt.ErrTimeout) || strings.Contains(err.Error(), "database is locked")
}

// describeError turns err into a user-facing message with actionable
// guidance for the common failure kinds.
func describeError(err error) string {
	switch {
	case errors.Is(err, ports.ErrMissingCredential):
		return fmt.Sprintf("%v\n  → export SHODAN_API_TOKEN=<your key> (or set shodan.token_env)", err)
	case errors.Is(err, ports.ErrStoreUnavailable) && isDBLockError(err):
		return fmt.Sprintf("%v\n"+
			"  → the baseline database is locked by another shodiff process\n"+
			"  → find the process:  ps aux | grep shodiff\n"+
			"  → then retry your command", err)
	default:
		return err.Error()
	}
}
