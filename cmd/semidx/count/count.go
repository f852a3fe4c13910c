// Package countcmder provides the count command.
package countcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/cmd/semidx/storecmd"
	"github.com/chataize/semantic-index/pkg/cliui"
)

type countCommander struct {
	env *storecmd.Env
	out io.Writer
}

const countLongDesc string = `Count stored texts and tag index lines.

Example:
  semidx count`

const countShortDesc string = "Count stored texts"

func NewCountCmd() *cobra.Command {
	cmder := &countCommander{}

	cmd := &cobra.Command{
		Use:   "count",
		Short: countShortDesc,
		Long:  countLongDesc,
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

func (c *countCommander) run(ctx context.Context) error {
	s, err := c.env.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(c.out, "%s %d\n", cliui.KeyStyle.Render("records:"), s.DB.Count())

	if s.Index != nil {
		n, err := s.Index.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s %d\n", cliui.KeyStyle.Render("index:  "), n)
	}

	return nil
}
