package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridable at build time with -ldflags.
var version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the daybook version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("daybook %s\n", version)
	},
}
