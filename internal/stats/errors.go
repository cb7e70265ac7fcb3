package stats

import (
	"fmt"

	"github.com/rileyhilliard/srvstats/internal/errors"
)

// errBusy is returned when a collection is already in flight on the collector.
var errBusy = errors.New(errors.ErrBusy,
	"A collection is already running for this session",
	"Try again on the next poll.")

func unsupportedSessionError() error {
	return errors.New(errors.ErrUnsupported,
		"This session can't run the stats probe",
		"Use an SSH session, or a local session on Linux or macOS.")
}

func unsupportedPlatformError(goos string) error {
	return errors.New(errors.ErrUnsupported,
		fmt.Sprintf("Local collection isn't supported on %s", goos),
		"Collect from a Linux or macOS host over SSH instead.")
}

func channelError(err error, what string) error {
	return errors.WrapWithCode(err, errors.ErrSSH, what,
		"The connection may have dropped. The next poll will try again.")
}

func parseError(message string) error {
	return errors.New(errors.ErrParse, message,
		"The probe printed something unexpected. Run 'srvstats probe' to inspect the script.")
}
