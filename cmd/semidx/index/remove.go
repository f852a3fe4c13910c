package indexcmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/cmd/semidx/storecmd"
	"github.com/chataize/semantic-index/pkg/cliui"
)

type removeCommander struct {
	text string
	tags []string

	env *storecmd.Env
	out io.Writer
}

const removeLongDesc string = `Remove lines from the tag index.

Pass a text to remove every line holding exactly that text, or one or more
--tag flags to remove every line carrying all of them. The log is rewritten
in place; unreadable lines are kept.

Examples:
  semidx index remove "grey wolf"
  semidx index remove --tag animal --tag wild`

const removeShortDesc string = "Remove lines from the tag index"

func newRemoveCmd() *cobra.Command {
	cmder := &removeCommander{}

	cmd := &cobra.Command{
		Use:   "remove [text]",
		Short: removeShortDesc,
		Long:  removeLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(cmder.tags) == 0 {
				return errors.New("pass a text or at least one --tag")
			}
			if len(args) == 1 && len(cmder.tags) > 0 {
				return errors.New("pass either a text or --tag, not both")
			}

			var err error
			cmder.env, err = storecmd.Load(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cmder.text = args[0]
			}
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringSliceVarP(&cmder.tags, "tag", "t", nil, "Remove lines carrying this tag (repeatable)")
	storecmd.Register(cmd)

	return cmd
}

func (c *removeCommander) run(ctx context.Context) error {
	s, err := c.env.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := requireIndex(s); err != nil {
		return err
	}

	var removed int
	if c.text != "" {
		removed, err = s.Index.Remove(ctx, c.text)
	} else {
		removed, err = s.Index.RemoveTags(ctx, c.tags...)
	}
	if err != nil {
		return fmt.Errorf("removing from index: %w", err)
	}

	fmt.Fprintf(c.out, "%s Removed %d lines\n", cliui.SuccessMark, removed)
	return nil
}
