// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jeranaias/rigchat/internal/telemetry"
	"github.com/jeranaias/rigchat/internal/util"
)

// RunStats prints a summary of the newest limit turns in the journal at
// path.
func RunStats(ctx context.Context, path string, limit int, out io.Writer) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(out, DimStyle.Render("No turns recorded. Set [telemetry] enabled = true in the config."))
		return nil
	}

	j, err := telemetry.OpenJournal(path, "")
	if err != nil {
		return err
	}
	defer j.Close()

	recent, err := j.Recent(ctx, limit)
	if err != nil {
		return err
	}
	total, err := j.Count(ctx)
	if err != nil {
		return err
	}

	WriteStats(out, recent, total, GetTerminalWidth())
	return nil
}

// WriteStats renders a summary block followed by one line per turn.
func WriteStats(out io.Writer, recent []telemetry.TurnStats, total, width int) {
	sum := telemetry.Summarize(recent)

	fmt.Fprintln(out, TitleStyle.Render("Turn statistics"))
	fmt.Fprintln(out, RenderField("Recorded", fmt.Sprintf("%d", total)))
	fmt.Fprintln(out, RenderField("Shown", fmt.Sprintf("%d (%d failed)", sum.Turns, sum.Failed)))
	fmt.Fprintln(out, RenderField("Avg TTFT", telemetry.FormatDuration(sum.AvgTTFT)))
	fmt.Fprintln(out, RenderField("Avg duration", telemetry.FormatDuration(sum.AvgDuration)))
	fmt.Fprintln(out, RenderField("Fragments", fmt.Sprintf("%d", sum.Fragments)))
	fmt.Fprintln(out, RenderField("Bytes", fmt.Sprintf("%d", sum.Bytes)))

	if len(recent) == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, s := range recent {
		line := fmt.Sprintf("%s  %-14s %s",
			s.StartedAt.Format("2006-01-02 15:04:05"), s.Model, s.String())
		line = util.TruncateWidth(line, width)
		if s.Failed() {
			fmt.Fprintln(out, ErrorStyle.Render(line))
			continue
		}
		fmt.Fprintln(out, line)
	}
}
