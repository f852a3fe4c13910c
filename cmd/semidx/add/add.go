// Package addcmder provides the add command for storing texts.
package addcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/cmd/semidx/storecmd"
	"github.com/chataize/semantic-index/pkg/cliui"
)

type addCommander struct {
	texts []string
	env   *storecmd.Env
	out   io.Writer
}

const addLongDesc string = `Embed texts and store them in the semidx database.

Each argument is embedded through the configured provider and stored together
with its vector. How repeated texts are handled depends on the duplicate
policy (allow, update, skip, reject). All texts are embedded before any is
stored, so a provider failure stores nothing.

The database snapshot is rewritten after a successful add.

Examples:
  semidx add "the cat sat on the mat"
  semidx add apple banana orange --duplicate-policy skip`

const addShortDesc string = "Embed and store texts"

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <text>...",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = storecmd.Load(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.texts = args
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	storecmd.Register(cmd)

	return cmd
}

func (c *addCommander) run(ctx context.Context) error {
	s, err := c.env.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	stored, err := s.DB.AddRange(ctx, c.texts...)
	if err != nil {
		return fmt.Errorf("adding texts: %w", err)
	}

	if err := s.Persist(ctx); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s Stored %d of %d texts (%d total)\n",
		cliui.SuccessMark, stored, len(c.texts), s.DB.Count())
	return nil
}
