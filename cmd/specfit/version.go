package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gammalab-data/specfit/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("specfit %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
