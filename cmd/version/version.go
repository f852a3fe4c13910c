// Package versioncmder prints the build metadata of the semidx binary.
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/pkg/utils"
)

const versionShortDesc = "Print the semidx version"

type versionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	return &cobra.Command{
		Use:   "version",
		Short: versionShortDesc,
		Long:  versionShortDesc + ", commit and build time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}
}

func (c *versionCommander) run(cmd *cobra.Command) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), utils.BuildInfo())
	return err
}
