// Package configcmder provides the config command for managing persistent
// semidx configuration stored in the .semidx/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent semidx configuration.

Configuration is stored as config.toml in the .semidx/ directory and provides
default values for command flags. CLI flags and SEMIDX_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  database.duplicate_policy, database.snapshot_path, database.snapshot_backend,
  index.path,
  embedding.provider, embedding.target, embedding.model, embedding.api_key,
  embedding.dimensions, embedding.cache_dir,
  api.listen, api.watch_snapshot

Use subcommands to get, set, or list configuration values:
  semidx config set <key> <value>    Set a configuration value
  semidx config get <key>            Get a configuration value
  semidx config list                 List all configuration values

Examples:
  semidx config set database.duplicate_policy skip
  semidx config set embedding.provider openai
  semidx config get embedding.model
  semidx config list`

const configShortDesc string = "Manage persistent semidx configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
