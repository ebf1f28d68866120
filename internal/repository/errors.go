package repository

import (
	"strings"

	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

// writeError converts an unsuccessful WriteResult into a typed error.
func writeError(res *WriteResult, action string) error {
	if res.Succeeded() {
		return nil
	}
	if res == nil || res.Unavailable {
		return appErrors.Clone(appErrors.ErrUnavailable, "record store unavailable: failed to "+action)
	}
	msg := "failed to " + action
	if len(res.Messages) > 0 {
		msg += ": " + strings.Join(res.Messages, "; ")
	}
	return appErrors.WithDetails(appErrors.ErrBatchFailed, msg, res.Messages)
}

// readError reports a read the store could not answer.
func readError(op string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status,
		"record store unavailable: failed to "+op+" records")
}
