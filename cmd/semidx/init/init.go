// Package initcmder provides the init command for initializing a local
// .semidx directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/pkg/config"
)

const (
	dirName = ".semidx"
)

type initCommander struct {
	preset string
	force  bool
	out    io.Writer
}

const initLongDesc string = `Initialize a new .semidx/ directory in the current working directory.

Creates a local .semidx/ directory that takes precedence over the default
~/.semidx/ directory for configuration, the database snapshot, and the tag
index. This is useful for keeping a separate store per project.

A config.toml with default values is written unless one already exists.
With --preset, the config targets that embedding provider instead; an
existing config.toml is only replaced when --force is given.

Examples:
  semidx init
  semidx init --preset openai`

const initShortDesc string = "Initialize a local .semidx/ directory"

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		"Embedding provider preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Replace an existing config.toml")

	return cmd
}

func (c *initCommander) run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .semidx directory: %w", err)
	}
	fmt.Fprintf(c.out, "Initialized .semidx directory: %s\n", dir)

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	_, err = os.Stat(cfger.GetTarget())
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading config: %w", err)
	}

	cfg := config.NewDefaultConfig()
	if c.preset != "" {
		cfg, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
		if exists && !c.force {
			return fmt.Errorf("%s already exists (use --force to replace it)", cfger.GetTarget())
		}
	} else if exists {
		return nil
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Wrote %s\n", cfger.GetTarget())
	return nil
}
