// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Exit codes and error display for rigchat commands.
//
// Commands return errors; main decides how to display them and which exit
// code to use.

package cli

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
)

// ErrTurnFailed marks a headless turn that ended with an error. The error
// notice has already been written to the output, so it is not displayed
// again.
var ErrTurnFailed = errors.New("turn failed")

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is returned for malformed command lines.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// NewUsageError creates a usage error with an example invocation.
func NewUsageError(reason, example string) error {
	return &UsageError{Reason: reason, Example: example}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w unless it has already been shown.
func DisplayError(w io.Writer, err error) {
	if err == nil || errors.Is(err, ErrTurnFailed) {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// A missing key and a failed turn are plain failures.
	if errors.Is(err, config.ErrMissingAPIKey) || errors.Is(err, ErrTurnFailed) {
		return ExitGeneralError
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	var validateErrs config.ValidateErrors
	if errors.As(err, &validateErrs) {
		return ExitConfigError
	}

	if errors.Is(err, cloud.ErrAuthFailed) {
		return ExitAuthError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ExitNetworkError
	}

	return ExitGeneralError
}
