// Package refreshcmder provides the refresh command for re-embedding every
// stored text, e.g. after switching embedding models.
package refreshcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/cmd/semidx/storecmd"
	"github.com/chataize/semantic-index/pkg/cliui"
)

type refreshCommander struct {
	env *storecmd.Env
	out io.Writer
}

const refreshLongDesc string = `Re-embed every stored text with the configured provider.

Use this after changing the embedding provider or model. The stored vectors are
replaced only if every text embeds successfully; on failure the database and
its snapshot are left as they were.

When the embedding dimensionality changes, pass --embedding-dimensions 0 (the
default) so the new width is learned from the provider.

Example:
  semidx refresh --embedding-provider openai`

const refreshShortDesc string = "Re-embed every stored text"

func NewRefreshCmd() *cobra.Command {
	cmder := &refreshCommander{}

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: refreshShortDesc,
		Long:  refreshLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = storecmd.Load(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	storecmd.Register(cmd)

	return cmd
}

func (c *refreshCommander) run(ctx context.Context) error {
	s, err := c.env.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	msg := fmt.Sprintf("Re-embedding %d records", s.DB.Count())
	if err := cliui.Step(c.out, msg, func() error { return s.DB.Refresh(ctx) }); err != nil {
		return err
	}

	return cliui.Step(c.out, "Writing snapshot", func() error { return s.Persist(ctx) })
}
