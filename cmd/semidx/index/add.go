package indexcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/cmd/semidx/storecmd"
	"github.com/chataize/semantic-index/pkg/cliui"
)

type addCommander struct {
	text string
	tags []string

	env *storecmd.Env
	out io.Writer
}

const addLongDesc string = `Embed a text and append it to the tag index.

Examples:
  semidx index add "grey wolf" --tag animal --tag wild
  semidx index add "carrot" -t vegetable`

const addShortDesc string = "Append a text to the tag index"

func newAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = storecmd.Load(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.text = args[0]
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringSliceVarP(&cmder.tags, "tag", "t", nil, "Tag to attach (repeatable)")
	storecmd.Register(cmd)

	return cmd
}

func (c *addCommander) run(ctx context.Context) error {
	s, err := c.env.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := requireIndex(s); err != nil {
		return err
	}

	if err := s.Index.Add(ctx, c.text, c.tags...); err != nil {
		return fmt.Errorf("appending to index: %w", err)
	}

	fmt.Fprintf(c.out, "%s Appended to %s\n", cliui.SuccessMark, cliui.DimStyle.Render(s.Index.Path()))
	return nil
}
