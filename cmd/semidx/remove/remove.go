// Package removecmder provides the remove command.
package removecmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/cmd/semidx/storecmd"
	"github.com/chataize/semantic-index/pkg/cliui"
)

type removeCommander struct {
	texts []string
	env   *storecmd.Env
	out   io.Writer
}

const removeLongDesc string = `Remove stored texts.

Every stored record equal to one of the given texts is removed. Removing a
text that is not stored is not an error. The provider is not called.

Example:
  semidx remove "the cat sat on the mat"`

const removeShortDesc string = "Remove stored texts"

func NewRemoveCmd() *cobra.Command {
	cmder := &removeCommander{}

	cmd := &cobra.Command{
		Use:   "remove <text>...",
		Short: removeShortDesc,
		Long:  removeLongDesc,
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

func (c *removeCommander) run(ctx context.Context) error {
	s, err := c.env.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	removed := 0
	for _, text := range c.texts {
		removed += s.DB.Remove(text)
	}

	if removed > 0 {
		if err := s.Persist(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.out, "%s Removed %d records (%d remaining)\n", cliui.SuccessMark, removed, s.DB.Count())
	return nil
}
