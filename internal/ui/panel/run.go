// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package panel

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/monkai/internal/chat"
)

// Run shows the panel until the user quits or ctx is canceled.
func Run(ctx context.Context, opts Options, progOpts ...tea.ProgramOption) error {
	m := New(ctx, opts)

	progOpts = append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	}, progOpts...)
	p := tea.NewProgram(m, progOpts...)

	opts.Session.Observe(func(ev chat.Event) { p.Send(EventMsg(ev)) })
	defer opts.Session.Observe(nil)
	if ctl := opts.Session.Speech(); ctl != nil {
		ctl.OnSpeaking(func(on bool) { p.Send(SpeakingMsg(on)) })
		defer ctl.OnSpeaking(nil)
	}

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run panel: %w", err)
	}
	return nil
}
