package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cv-mapper/internal/bootstrap"
	"cv-mapper/internal/extract"
	"cv-mapper/internal/shared/config"
	"cv-mapper/resume/service"
)

func newConvertCmd() *cobra.Command {
	var (
		assets  assetFlags
		inFile  string
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Send a resume PDF to the reformulation service and render the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := os.ReadFile(inFile)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			info, err := extract.InspectPDF(content)
			if err != nil {
				return err
			}
			a, err := assets.load()
			if err != nil {
				return err
			}
			client, err := bootstrap.BuildReformulateClient(config.Load())
			if err != nil {
				return err
			}
			mapper, err := service.NewMapper(a, client)
			if err != nil {
				return err
			}
			result, err := mapper.Convert(cmd.Context(), filepath.Base(inFile), content)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outFile, result.Document, 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s from %d-page PDF (%d experiences, %s)\n",
				outFile, info.Pages, result.Experiences, result.Duration.Round(time.Millisecond))
			return nil
		},
	}
	assets.register(cmd)
	cmd.Flags().StringVarP(&inFile, "in", "f", "", "Path to the resume PDF (required)")
	cmd.Flags().StringVarP(&outFile, "out", "o", service.OutputFileName, "Path to the output DOCX")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
