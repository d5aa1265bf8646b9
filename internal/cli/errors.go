// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/monkai/internal/chat"
	"github.com/jeranaias/monkai/internal/cloud"
	"github.com/jeranaias/monkai/internal/config"
	"github.com/jeranaias/monkai/internal/scripter"
	"github.com/jeranaias/monkai/internal/settings"
	"github.com/jeranaias/monkai/internal/speech"
	"github.com/jeranaias/monkai/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2 // invalid command usage or arguments
	ExitConfigError   = 3 // config file or missing API key
	ExitAuthError     = 4 // provider rejected the key
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "scripts"
	Action  string // e.g. "import"
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError reports a malformed command line.
type UsageError struct {
	Reason string
	Usage  string // Example of a valid invocation (optional)
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Reason, e.Usage)
	}
	return e.Reason
}

// ErrMissingArgument returns a UsageError for a required argument.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Reason: "missing required argument: " + argName, Usage: usage}
}

func wrapCommand(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

// =============================================================================
// DISPLAY AND EXIT CODES
// =============================================================================

// DisplayError writes err to w with the error marker.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, styles.RenderError(err.Error()))
}

// GetExitCode maps err to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}
	var invalid config.ValidateErrors
	if errors.As(err, &invalid) {
		return ExitConfigError
	}

	switch {
	case errors.Is(err, chat.ErrConfigMissing),
		errors.Is(err, settings.ErrMissingKey),
		errors.Is(err, settings.ErrUnknownProvider),
		errors.Is(err, settings.ErrUnknownVoice),
		errors.Is(err, settings.ErrBadSpeed),
		errors.Is(err, speech.ErrNoCredential),
		errors.Is(err, speech.ErrNoCommand):
		return ExitConfigError
	case errors.Is(err, cloud.ErrAuthFailed):
		return ExitAuthError
	case errors.Is(err, cloud.ErrRateLimited):
		return ExitNetworkError
	case errors.Is(err, scripter.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	}

	var apiErr *cloud.APIError
	if errors.As(err, &apiErr) {
		return ExitNetworkError
	}
	return ExitGeneralError
}
