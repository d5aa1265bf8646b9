// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// FilePlaceholder in a record command is replaced with the output path.
const FilePlaceholder = "{file}"

// Default external commands.
var (
	DefaultPlayerCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-"}
	DefaultRecordCommand = []string{"sox", "-d", "-q", "-c", "1", "-r", "16000", FilePlaceholder}
)

// ErrNoCommand is returned when a command line is empty.
var ErrNoCommand = errors.New("no command configured")

// CommandPlayer pipes audio into an external player's stdin.
type CommandPlayer struct {
	argv []string
}

// NewCommandPlayer returns a player for argv; empty argv selects
// DefaultPlayerCommand.
func NewCommandPlayer(argv []string) *CommandPlayer {
	if len(argv) == 0 {
		argv = DefaultPlayerCommand
	}
	return &CommandPlayer{argv: argv}
}

// Play implements Player.
func (p *CommandPlayer) Play(ctx context.Context, audio io.Reader) (Handle, error) {
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.Stdin = audio
	return start(cmd, func(proc *os.Process) error { return proc.Kill() })
}

// CommandRecorder records audio into a file using an external command.
type CommandRecorder struct {
	argv []string
}

// NewCommandRecorder returns a recorder for argv; empty argv selects
// DefaultRecordCommand.
func NewCommandRecorder(argv []string) *CommandRecorder {
	if len(argv) == 0 {
		argv = DefaultRecordCommand
	}
	return &CommandRecorder{argv: argv}
}

// Record starts recording into path. Stop interrupts the recorder so it
// can finish writing the file.
func (r *CommandRecorder) Record(path string) (Handle, error) {
	argv := make([]string, len(r.argv))
	for i, a := range r.argv {
		argv[i] = strings.ReplaceAll(a, FilePlaceholder, path)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	return start(cmd, func(proc *os.Process) error { return proc.Signal(os.Interrupt) })
}

type cmdHandle struct {
	cmd  *exec.Cmd
	stop func(*os.Process) error

	stopOnce sync.Once
	waitOnce sync.Once
	waitErr  error
	stopped  chan struct{}
}

func start(cmd *exec.Cmd, stop func(*os.Process) error) (*cmdHandle, error) {
	if len(cmd.Args) == 0 || cmd.Args[0] == "" {
		return nil, ErrNoCommand
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Args[0], err)
	}
	return &cmdHandle{cmd: cmd, stop: stop, stopped: make(chan struct{})}, nil
}

// Wait returns nil when the process was stopped on request.
func (h *cmdHandle) Wait() error {
	h.waitOnce.Do(func() {
		h.waitErr = h.cmd.Wait()
	})
	select {
	case <-h.stopped:
		return nil
	default:
		return h.waitErr
	}
}

func (h *cmdHandle) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopped)
		if h.cmd.Process != nil {
			_ = h.stop(h.cmd.Process)
		}
	})
}
