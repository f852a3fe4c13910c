// Package indexcmder provides the index command for the append-only,
// tag-filtered log store.
package indexcmder

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/pkg/stores"
)

const indexLongDesc string = `Manage the append-only tag index.

Every line of the index log holds one text, its tags, and its embedding.
Searches stream the whole log and can be restricted to lines carrying every
requested tag.

  semidx index add <text> --tag animal --tag wild
  semidx index find <query> --tag animal
  semidx index remove <text>
  semidx index remove --tag animal`

const indexShortDesc string = "Manage the tag index"

var errNoIndex = errors.New("no tag index configured (set index.path or --index)")

func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newRemoveCmd())

	return cmd
}

func requireIndex(s *stores.Stores) error {
	if s.Index == nil {
		return errNoIndex
	}
	return nil
}
