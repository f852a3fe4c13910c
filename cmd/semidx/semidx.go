// Package semidxcmder
package semidxcmder

import (
	"github.com/spf13/cobra"

	addcmder "github.com/chataize/semantic-index/cmd/semidx/add"
	configcmder "github.com/chataize/semantic-index/cmd/semidx/config"
	countcmder "github.com/chataize/semantic-index/cmd/semidx/count"
	indexcmder "github.com/chataize/semantic-index/cmd/semidx/index"
	initcmder "github.com/chataize/semantic-index/cmd/semidx/init"
	refreshcmder "github.com/chataize/semantic-index/cmd/semidx/refresh"
	removecmder "github.com/chataize/semantic-index/cmd/semidx/remove"
	searchcmder "github.com/chataize/semantic-index/cmd/semidx/search"
	servecmder "github.com/chataize/semantic-index/cmd/semidx/serve"
	versioncmder "github.com/chataize/semantic-index/cmd/version"
)

const semidxLongDesc string = `semidx is an embedded semantic search store.

Texts are embedded through a configured provider (ollama, openai, gemini) and
kept in memory, snapshotted to disk between runs. A separate append-only tag
index supports tag-filtered similarity search.

Set up a project-local store:
  semidx init --preset ollama

Manage the record store:
  semidx add <text>...       Embed and store texts
  semidx search <query>      Rank stored texts by similarity
  semidx remove <text>       Remove a stored text
  semidx count               Count stored texts
  semidx refresh             Re-embed every stored text

Manage the tag index:
  semidx index add <text> --tag animal
  semidx index find <query> --tag animal

Run the HTTP API:
  semidx serve`

const semidxShortDesc string = "semidx - embedded semantic search"

func NewSemidxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "semidx",
		Short:        semidxShortDesc,
		Long:         semidxLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .semidx/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(removecmder.NewRemoveCmd())
	cmd.AddCommand(countcmder.NewCountCmd())
	cmd.AddCommand(refreshcmder.NewRefreshCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
