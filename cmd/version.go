package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drengskapur/omnivex/pkg/version"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version of omnivex",
	Long:  `Display the version, commit and build details of the omnivex binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := version.Get()
		if versionShort {
			fmt.Fprintln(cmd.OutOrStdout(), v.Version)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "Print the version number only")
	RootCmd.AddCommand(versionCmd)
}
