// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/rigchat/internal/config"
)

// RunInit writes the default configuration to path (the default config path
// when empty). An existing file is only replaced when force is set.
func RunInit(path string, force bool, out io.Writer) error {
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !force {
		return NewUsageError(
			fmt.Sprintf("config file already exists: %s", path),
			"rigchat init --force",
		)
	}

	cfg := config.Default()
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}

	fmt.Fprintln(out, SuccessStyle.Render("Wrote "+path))
	fmt.Fprintln(out, RenderField("Model", cfg.API.Model))
	fmt.Fprintln(out, RenderField("API key env", cfg.API.APIKeyEnv))
	return nil
}
