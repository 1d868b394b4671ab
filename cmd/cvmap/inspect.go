package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cv-mapper/internal/extract"
)

func newInspectCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the text of a DOCX and any placeholder left in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			text, err := extract.ExtractTextFromBytes(cmd.Context(), data, extract.MimeDOCX, args[0])
			if err != nil {
				return err
			}
			tokens, err := extract.UnresolvedTokens(data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, text)
			fmt.Fprintf(out, "\nunresolved tokens: %d\n", len(tokens))
			if len(tokens) > 0 {
				fmt.Fprintf(out, "  %s\n", strings.Join(tokens, " "))
				if strict {
					return fmt.Errorf("%d unresolved tokens", len(tokens))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when placeholders remain")
	return cmd
}
