// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbrun/nbrun/internal/config"
)

// newConfigCommand creates the `nbrun config` command tree.
func newConfigCommand(app *App, global *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nbrun configuration",
		Long: `Manage nbrun configuration.

Configuration is stored in:
  - Linux: ~/.config/nbrun/config.cue
  - macOS: ~/Library/Application Support/nbrun/config.cue
  - Windows: %APPDATA%\nbrun\config.cue

A config.cue in the current directory is used when the user file is absent.
Every key can be overridden with an NBRUN_ environment variable, for example
NBRUN_TIMEOUT=1800 or NBRUN_CONTAINER_IMAGE=jupyter/datascience-notebook.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: global.configPath})
			if err != nil {
				return err
			}
			showConfig(app.stdout, loaded)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfigPath(app.stdout, global.configPath)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app.stdout, global.configPath, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: global.configPath})
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(loaded.Config))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, loaded *config.Loaded) {
	cfg := loaded.Config
	key := PathStyle.Render
	val := SuccessStyle.Render

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if loaded.Path != "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), loaded.Path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", key("runtime"), val(cfg.Runtime.String()))
	fmt.Fprintf(w, "%s: %s\n", key("kernel"), val(cfg.Kernel))
	fmt.Fprintf(w, "%s: %s\n", key("timeout"), val(fmt.Sprintf("%ds", cfg.Timeout)))

	python := cfg.Python.Binary
	if python == "" {
		python = "(from PATH)"
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("python"))
	fmt.Fprintf(w, "  binary: %s\n", val(python))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("container"))
	fmt.Fprintf(w, "  engine: %s\n", val(cfg.Container.Engine.String()))
	if cfg.Container.Host != "" {
		fmt.Fprintf(w, "  host: %s\n", val(cfg.Container.Host))
	}
	fmt.Fprintf(w, "  image: %s\n", val(cfg.Container.Image))
	fmt.Fprintf(w, "  pull: %s\n", val(cfg.Container.Pull.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("fast.params"))
	for _, p := range cfg.Fast.Params {
		fmt.Fprintf(w, "  - %s = %s\n", val(p.Name), val(p.Value))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", key("artifacts"), val(strings.Join(cfg.Artifacts, ", ")))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", val(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", val(fmt.Sprintf("%v", cfg.UI.Verbose)))
}

func showConfigPath(w io.Writer, explicit string) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	path, err := config.Locate(config.LoadOptions{ConfigFilePath: explicit})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Config directory: %s\n", cfgDir)
	if path == "" {
		fmt.Fprintf(w, "Config file: %s\n", SubtitleStyle.Render("(none, using defaults)"))
	} else {
		fmt.Fprintf(w, "Config file: %s\n", path)
	}
	return nil
}

func initConfig(w io.Writer, explicit string, force bool) error {
	path := explicit
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	written, err := config.CreateDefaultConfig(path, force)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !written {
		fmt.Fprintf(w, "%s Config file already exists at %s (use --force to overwrite)\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(w, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
