package indexcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/cmd/semidx/storecmd"
	"github.com/chataize/semantic-index/pkg/cliui"
)

type findCommander struct {
	query string
	tags  []string
	topK  int
	quiet bool

	env *storecmd.Env
	out io.Writer
}

const findLongDesc string = `Search the tag index by cosine similarity.

Only lines carrying every --tag are considered.

Examples:
  semidx index find "hunter" --tag animal
  semidx index find "crunchy" --top 1 --quiet`

const findShortDesc string = "Search the tag index"

func newFindCmd() *cobra.Command {
	cmder := &findCommander{}

	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: findShortDesc,
		Long:  findLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = storecmd.Load(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringSliceVarP(&cmder.tags, "tag", "t", nil, "Required tag (repeatable)")
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only matching texts, one per line")
	storecmd.Register(cmd)

	return cmd
}

func (c *findCommander) run(ctx context.Context) error {
	if c.topK <= 0 {
		return fmt.Errorf("--top must be positive, got %d", c.topK)
	}

	s, err := c.env.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := requireIndex(s); err != nil {
		return err
	}

	matches, err := s.Index.Find(ctx, c.query, c.tags, c.topK)
	if err != nil {
		return fmt.Errorf("searching index: %w", err)
	}

	if len(matches) == 0 {
		if !c.quiet {
			fmt.Fprintln(c.out, "No results found.")
		}
		return nil
	}

	for i, m := range matches {
		if c.quiet {
			fmt.Fprintln(c.out, m.Text)
			continue
		}
		fmt.Fprintln(c.out, cliui.Result(i+1, m.Score, m.Text, m.Tags))
	}

	return nil
}
