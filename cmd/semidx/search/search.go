// Package searchcmder provides the search command for similarity search over
// stored texts.
package searchcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/cmd/semidx/storecmd"
	"github.com/chataize/semantic-index/pkg/cliui"
)

type searchCommander struct {
	query string
	topK  int
	quiet bool

	env *storecmd.Env
	out io.Writer
}

const searchLongDesc string = `Search stored texts by semantic similarity.

The query is embedded through the configured provider and compared against
every stored text. Results are ranked best first by similarity score.

Use --quiet to output only the matching texts, one per line.

Example:
  semidx search "animal"
  semidx search "fruit" --top 3
  semidx search "fruit" --quiet`

const searchShortDesc string = "Search stored texts"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
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

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only matching texts, one per line")
	storecmd.Register(cmd)

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	if c.topK <= 0 {
		return fmt.Errorf("--top must be positive, got %d", c.topK)
	}

	s, err := c.env.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.DB.SearchTextScored(ctx, c.query, c.topK)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		if !c.quiet {
			fmt.Fprintln(c.out, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, r := range results {
			fmt.Fprintln(c.out, r.Item)
		}
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search Results for:"),
		cliui.TagStyle.Render(fmt.Sprintf("%q", c.query)),
	)
	for i, r := range results {
		fmt.Fprintln(c.out, cliui.Result(i+1, r.Score, r.Item, nil))
	}
	fmt.Fprintln(c.out)

	return nil
}
