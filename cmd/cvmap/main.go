// Command cvmap renders CVs onto the Word template from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cvmap",
		Short:         "Map CVs onto the Word template",
		Long:          "cvmap fills the CV template with reformulated resume data, offline from JSON or through the reformulation service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRenderCmd(), newConvertCmd(), newInspectCmd(), newAssetsCmd())
	return root
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
